package rpc

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/bhtraj/internal/trajectory"
)

// EncodeRecords converts records to the Struct returned by Query.
func EncodeRecords(label string, records []*trajectory.Record) (*structpb.Struct, error) {
	list := make([]interface{}, len(records))
	for i, r := range records {
		list[i] = map[string]interface{}{
			"id":                         r.ID,
			"label":                      r.Label,
			"length":                     r.Length,
			"final_best_energy":          r.FinalBestEnergy,
			"created_at":                 r.CreatedAt.Format(time.RFC3339Nano),
			"best_energy_trajectory":     floatList(r.BestEnergies),
			"accepted_energy_trajectory": floatList(r.AcceptedEnergies),
		}
	}
	return structpb.NewStruct(map[string]interface{}{
		"label":   label,
		"records": list,
	})
}

// DecodeRecords is the inverse of EncodeRecords. Every decoded record is
// validated.
func DecodeRecords(s *structpb.Struct) ([]*trajectory.Record, error) {
	list := s.GetFields()["records"].GetListValue().GetValues()
	records := make([]*trajectory.Record, 0, len(list))
	for i, v := range list {
		f := v.GetStructValue().GetFields()
		if f == nil {
			return nil, fmt.Errorf("record %d: not an object", i)
		}
		r := &trajectory.Record{
			ID:               f["id"].GetStringValue(),
			Label:            f["label"].GetStringValue(),
			Length:           int(f["length"].GetNumberValue()),
			FinalBestEnergy:  f["final_best_energy"].GetNumberValue(),
			BestEnergies:     numbers(f["best_energy_trajectory"]),
			AcceptedEnergies: numbers(f["accepted_energy_trajectory"]),
		}
		if ts := f["created_at"].GetStringValue(); ts != "" {
			t, err := time.Parse(time.RFC3339Nano, ts)
			if err != nil {
				return nil, fmt.Errorf("record %d: created_at: %w", i, err)
			}
			r.CreatedAt = t
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, r)
	}
	return records, nil
}

func floatList(xs []float64) []interface{} {
	out := make([]interface{}, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func numbers(v *structpb.Value) []float64 {
	values := v.GetListValue().GetValues()
	out := make([]float64, len(values))
	for i, x := range values {
		out[i] = x.GetNumberValue()
	}
	return out
}
