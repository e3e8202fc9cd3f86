// Package pb holds the wire messages for the classifier inference service.
//
// The structs are a hand-maintained mirror of classifier.proto in the legacy
// message shape: the protobuf runtime derives their descriptors from the
// struct tags via protoadapt, so no generated code is checked in. Field
// numbers must match the proto file.
package pb

import (
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/protoadapt"
)

// ClassifyRequest carries one encoded image to score.
type ClassifyRequest struct {
	ImageData []byte `protobuf:"bytes,1,opt,name=image_data,proto3" json:"image_data,omitempty"`
	Width     int32  `protobuf:"varint,2,opt,name=width,proto3" json:"width,omitempty"`
	Height    int32  `protobuf:"varint,3,opt,name=height,proto3" json:"height,omitempty"`
	Format    string `protobuf:"bytes,4,opt,name=format,proto3" json:"format,omitempty"`
}

func (m *ClassifyRequest) Reset()         { *m = ClassifyRequest{} }
func (m *ClassifyRequest) String() string { return prototext.Format(protoadapt.MessageV2Of(m)) }
func (*ClassifyRequest) ProtoMessage()    {}

// BoundingBox is a flagged area inside the scored image, in pixel coordinates.
type BoundingBox struct {
	X1         int32   `protobuf:"varint,1,opt,name=x1,proto3" json:"x1,omitempty"`
	Y1         int32   `protobuf:"varint,2,opt,name=y1,proto3" json:"y1,omitempty"`
	X2         int32   `protobuf:"varint,3,opt,name=x2,proto3" json:"x2,omitempty"`
	Y2         int32   `protobuf:"varint,4,opt,name=y2,proto3" json:"y2,omitempty"`
	Confidence float32 `protobuf:"fixed32,5,opt,name=confidence,proto3" json:"confidence,omitempty"`
}

func (m *BoundingBox) Reset()         { *m = BoundingBox{} }
func (m *BoundingBox) String() string { return prototext.Format(protoadapt.MessageV2Of(m)) }
func (*BoundingBox) ProtoMessage()    {}

// ClassifyResponse is the classifier verdict for one image.
type ClassifyResponse struct {
	Confidence   float32        `protobuf:"fixed32,1,opt,name=confidence,proto3" json:"confidence,omitempty"`
	Flagged      bool           `protobuf:"varint,2,opt,name=flagged,proto3" json:"flagged,omitempty"`
	Boxes        []*BoundingBox `protobuf:"bytes,3,rep,name=boxes,proto3" json:"boxes,omitempty"`
	ModelVersion string         `protobuf:"bytes,4,opt,name=model_version,proto3" json:"model_version,omitempty"`
}

func (m *ClassifyResponse) Reset()         { *m = ClassifyResponse{} }
func (m *ClassifyResponse) String() string { return prototext.Format(protoadapt.MessageV2Of(m)) }
func (*ClassifyResponse) ProtoMessage()    {}

// Ensure the messages satisfy the legacy interface the gRPC codec adapts.
var (
	_ protoadapt.MessageV1 = (*ClassifyRequest)(nil)
	_ protoadapt.MessageV1 = (*ClassifyResponse)(nil)
	_ protoadapt.MessageV1 = (*BoundingBox)(nil)
)
