package mqtt

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// FormatProtoPayload encodes the same document as FormatPayload as a
// binary google.protobuf.Struct.
func FormatProtoPayload(event Event) ([]byte, error) {
	data, err := FormatPayload(event)
	if err != nil {
		return nil, err
	}
	return jsonToProto(data)
}

// FormatProtoSystemPayload encodes the same document as FormatSystemPayload
// as a binary google.protobuf.Struct.
func FormatProtoSystemPayload(event SystemEvent) ([]byte, error) {
	data, err := FormatSystemPayload(event)
	if err != nil {
		return nil, err
	}
	return jsonToProto(data)
}

func jsonToProto(data []byte) ([]byte, error) {
	s := &structpb.Struct{}
	if err := s.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("convert to struct: %w", err)
	}
	out, err := proto.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal proto: %w", err)
	}
	return out, nil
}

// DecodeProtoPayload turns a binary Struct payload back into a map.
func DecodeProtoPayload(data []byte) (map[string]any, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("unmarshal proto: %w", err)
	}
	return s.AsMap(), nil
}
