package storage

import (
	"encoding/json"
	"errors"

	"eidolon/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeScenario(s model.ScenarioRecord) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeScenario(data []byte) (model.ScenarioRecord, error) {
	var record model.ScenarioRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.ScenarioRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.ScenarioRecord{}, err
	}
	return record, nil
}

func EncodeFeatures(f model.FeatureRecord) ([]byte, error) {
	return json.Marshal(f)
}

func DecodeFeatures(data []byte) (model.FeatureRecord, error) {
	var record model.FeatureRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.FeatureRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.FeatureRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
