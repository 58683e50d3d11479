package storage

import (
	"encoding/json"
	"errors"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp sets the current schema and codec versions on a record.
func Stamp(r EvaluationRecord) EvaluationRecord {
	r.SchemaVersion = CurrentSchemaVersion
	r.CodecVersion = CurrentCodecVersion
	return r
}

func EncodeEvaluation(r EvaluationRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeEvaluation(data []byte) (EvaluationRecord, error) {
	var record EvaluationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return EvaluationRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return EvaluationRecord{}, err
	}
	return record, nil
}

func checkVersion(v VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
