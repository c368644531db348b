package overview

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// ToMessagePack serializes the record for storage between sessions.
func (r *Record) ToMessagePack() ([]byte, error) {
	b := make([]byte, 0, 64)
	b = msgp.AppendMapHeader(b, 2)
	b = msgp.AppendString(b, "number")
	b = msgp.AppendInt64(b, r.Number)
	b = msgp.AppendString(b, "fields")
	b = msgp.AppendMapHeader(b, uint32(len(r.Fields)))
	for k, v := range r.Fields {
		b = msgp.AppendString(b, k)
		b = msgp.AppendString(b, v)
	}
	return b, nil
}

// FromMessagePack deserializes a record produced by ToMessagePack.
func FromMessagePack(data []byte) (*Record, error) {
	size, data, err := msgp.ReadMapHeaderBytes(data)
	if err != nil {
		return nil, fmt.Errorf("overview: bad msgpack envelope: %w", err)
	}

	rec := &Record{Fields: make(map[string]string)}
	for i := uint32(0); i < size; i++ {
		var key string
		key, data, err = msgp.ReadStringBytes(data)
		if err != nil {
			return nil, fmt.Errorf("overview: bad msgpack key: %w", err)
		}
		switch key {
		case "number":
			rec.Number, data, err = msgp.ReadInt64Bytes(data)
			if err != nil {
				return nil, fmt.Errorf("overview: bad article number: %w", err)
			}
		case "fields":
			var n uint32
			n, data, err = msgp.ReadMapHeaderBytes(data)
			if err != nil {
				return nil, fmt.Errorf("overview: bad fields map: %w", err)
			}
			for j := uint32(0); j < n; j++ {
				var name, value string
				name, data, err = msgp.ReadStringBytes(data)
				if err != nil {
					return nil, fmt.Errorf("overview: bad field name: %w", err)
				}
				value, data, err = msgp.ReadStringBytes(data)
				if err != nil {
					return nil, fmt.Errorf("overview: bad field value: %w", err)
				}
				rec.Fields[name] = value
			}
		default:
			data, err = msgp.Skip(data)
			if err != nil {
				return nil, fmt.Errorf("overview: bad msgpack value: %w", err)
			}
		}
	}
	return rec, nil
}

// MarshalRecords serializes a batch of records.
func MarshalRecords(records []Record) ([]byte, error) {
	b := make([]byte, 0, 64*len(records))
	b = msgp.AppendArrayHeader(b, uint32(len(records)))
	for i := range records {
		rb, err := records[i].ToMessagePack()
		if err != nil {
			return nil, err
		}
		b = append(b, rb...)
	}
	return b, nil
}

// UnmarshalRecords deserializes a batch produced by MarshalRecords.
func UnmarshalRecords(data []byte) ([]Record, error) {
	size, data, err := msgp.ReadArrayHeaderBytes(data)
	if err != nil {
		return nil, fmt.Errorf("overview: bad msgpack array: %w", err)
	}
	records := make([]Record, 0, size)
	for i := uint32(0); i < size; i++ {
		var next []byte
		next, err = msgp.Skip(data)
		if err != nil {
			return nil, fmt.Errorf("overview: bad msgpack element: %w", err)
		}
		rec, err := FromMessagePack(data[:len(data)-len(next)])
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
		data = next
	}
	return records, nil
}
