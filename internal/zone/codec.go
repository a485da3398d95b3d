package zone

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"zonewatch/internal/model"
)

var fileAPI = jsoniter.Config{IndentionStep: 2}.Froze()

// Serialize encodes the registry as a JSON object mapping each zone name to
// its ordered [x, y] vertex list. Keys are written in registration order.
func (r *Registry) Serialize() ([]byte, error) {
	zones := r.Zones()

	stream := fileAPI.BorrowStream(nil)
	defer fileAPI.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, z := range zones {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(z.Name)
		stream.WriteArrayStart()
		for j, p := range z.Points {
			if j > 0 {
				stream.WriteMore()
			}
			stream.WriteRaw("[")
			stream.WriteFloat64(p.X)
			stream.WriteRaw(", ")
			stream.WriteFloat64(p.Y)
			stream.WriteRaw("]")
		}
		stream.WriteArrayEnd()
	}
	stream.WriteObjectEnd()

	if stream.Error != nil {
		return nil, fmt.Errorf("encode zones: %w", stream.Error)
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

// Deserialize replaces the registry contents with the zones encoded in data.
// Object key order becomes registration order. Nothing is changed if any zone
// is malformed.
func (r *Registry) Deserialize(data []byte) error {
	zones, err := decodeZones(data)
	if err != nil {
		return err
	}

	staged := NewRegistry()
	for _, z := range zones {
		if err := staged.AddZone(z.Name, z.Points); err != nil {
			return err
		}
	}
	r.replace(staged.zones)
	return nil
}

func decodeZones(data []byte) ([]model.Zone, error) {
	iter := jsoniter.ConfigDefault.BorrowIterator(data)
	defer jsoniter.ConfigDefault.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return nil, fmt.Errorf("decode zones: expected a JSON object")
	}

	var zones []model.Zone
	iter.ReadMapCB(func(it *jsoniter.Iterator, name string) bool {
		var points []model.Point
		it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			var pair []float64
			it.ReadVal(&pair)
			if it.Error != nil {
				return false
			}
			if len(pair) != 2 {
				it.ReportError("decode zones", fmt.Sprintf("zone %q: vertex must be an [x, y] pair", name))
				return false
			}
			points = append(points, model.Point{X: pair[0], Y: pair[1]})
			return true
		})
		zones = append(zones, model.Zone{Name: name, Points: points})
		return it.Error == nil
	})

	if iter.Error != nil {
		return nil, fmt.Errorf("decode zones: %w", iter.Error)
	}

	// only whitespace may follow the object
	iter.WhatIsNext()
	if iter.Error != io.EOF {
		return nil, fmt.Errorf("decode zones: unexpected data after the zones object")
	}
	return zones, nil
}

// SaveFile writes the serialized registry to path, replacing it atomically.
func (r *Registry) SaveFile(path string) error {
	data, err := r.Serialize()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create zones directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".zones-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp zones file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write zones file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close zones file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace zones file: %w", err)
	}
	return nil
}

// LoadFile replaces the registry contents with the zones stored at path.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read zones file: %w", err)
	}
	return r.Deserialize(data)
}
