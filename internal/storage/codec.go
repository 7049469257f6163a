package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"genopt/internal/model"
)

const CurrentCodecVersion = 1

var ErrVersionMismatch = errors.New("record version mismatch")

type encodedRun struct {
	CodecVersion int                           `json:"codec_version"`
	Run          model.RunRecord               `json:"run"`
	Diagnostics  []model.GenerationDiagnostics `json:"diagnostics,omitempty"`
}

// EncodeRunRecord renders a finished run and its generation diagnostics as
// versioned JSON. The best chromosome must carry a valid fitness.
func EncodeRunRecord(record model.RunRecord, diagnostics []model.GenerationDiagnostics) ([]byte, error) {
	if math.IsNaN(record.Best.Fitness) || math.IsInf(record.Best.Fitness, 0) {
		return nil, fmt.Errorf("run %s: best chromosome has no fitness", record.RunID)
	}
	return json.Marshal(encodedRun{CodecVersion: CurrentCodecVersion, Run: record, Diagnostics: diagnostics})
}

func DecodeRunRecord(data []byte) (model.RunRecord, []model.GenerationDiagnostics, error) {
	var encoded encodedRun
	if err := json.Unmarshal(data, &encoded); err != nil {
		return model.RunRecord{}, nil, err
	}
	if encoded.CodecVersion != CurrentCodecVersion {
		return model.RunRecord{}, nil, ErrVersionMismatch
	}
	return encoded.Run, encoded.Diagnostics, nil
}
