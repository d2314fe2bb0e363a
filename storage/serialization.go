// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/vidrag/core"
)

// Records are encoded with mus-go primitives. Strings use ord.String, counts
// and lengths use varint, vector components and fingerprints use raw
// fixed-width encodings. Field order is the wire format; append new fields
// at the end of a record.

// Serializer matches the method set of the mus-go serializers composed below.
type Serializer[T any] interface {
	Marshal(v T, bs []byte) (n int)
	Unmarshal(bs []byte) (v T, n int, err error)
	Size(v T) (size int)
}

var (
	// VectorMUS encodes a vector as its length followed by raw float32 values.
	VectorMUS Serializer[[]float32] = vectorMUS{}
	// VectorRecordMUS encodes a core.VectorRecord.
	VectorRecordMUS Serializer[core.VectorRecord] = vectorRecordMUS{}
	// TranscriptMUS encodes a core.Transcript, metadata included.
	TranscriptMUS Serializer[core.Transcript] = transcriptMUS{}
	// IndexSpecMUS encodes an IndexSpec.
	IndexSpecMUS Serializer[IndexSpec] = indexSpecMUS{}
)

// decoder walks a buffer, stopping at the first error.
type decoder struct {
	bs  []byte
	n   int
	err error
}

type unmarshaller[T any] interface {
	Unmarshal(bs []byte) (v T, n int, err error)
}

func next[T any](d *decoder, u unmarshaller[T]) (v T) {
	if d.err != nil {
		return v
	}
	v, n, err := u.Unmarshal(d.bs[d.n:])
	d.n += n
	if err != nil {
		d.err = fmt.Errorf("%w: %w", ErrTruncatedData, err)
	}
	return v
}

// length reads a slice length and checks that at least width bytes per
// element remain, so corrupt input cannot force a huge allocation.
func (d *decoder) length(width int) int {
	l := next(d, varint.PositiveInt)
	if d.err != nil {
		return 0
	}
	if l < 0 || l*width > len(d.bs)-d.n {
		d.err = fmt.Errorf("%w: length %d exceeds remaining %d bytes", ErrTruncatedData, l, len(d.bs)-d.n)
		return 0
	}
	return l
}

func (d *decoder) strings() []string {
	l := d.length(1)
	if l == 0 {
		return nil
	}
	out := make([]string, l)
	for i := range out {
		out[i] = next(d, ord.String)
	}
	return out
}

func (d *decoder) time() time.Time {
	sec := next(d, varint.Int64)
	nsec := next(d, varint.Int64)
	if d.err != nil {
		return time.Time{}
	}
	return time.Unix(sec, nsec).UTC()
}

func stringsSize(v []string) (size int) {
	size = varint.PositiveInt.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

func marshalStrings(v []string, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func timeSize(t time.Time) int {
	return varint.Int64.Size(t.Unix()) + varint.Int64.Size(int64(t.Nanosecond()))
}

func marshalTime(t time.Time, bs []byte) (n int) {
	n = varint.Int64.Marshal(t.Unix(), bs)
	n += varint.Int64.Marshal(int64(t.Nanosecond()), bs[n:])
	return n
}

type vectorMUS struct{}

func (vectorMUS) Size(v []float32) (size int) {
	size = varint.PositiveInt.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func (vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (m vectorMUS) Unmarshal(bs []byte) ([]float32, int, error) {
	d := &decoder{bs: bs}
	v := m.decodeInto(d, nil)
	return v, d.n, d.err
}

func (vectorMUS) decodeInto(d *decoder, buf []float32) []float32 {
	l := d.length(4)
	if d.err != nil {
		return nil
	}
	if cap(buf) < l {
		buf = make([]float32, l)
	} else {
		buf = buf[:l]
	}
	for i := range buf {
		buf[i] = next(d, raw.Float32)
	}
	return buf
}

type vectorRecordMUS struct{}

func (vectorRecordMUS) Size(v core.VectorRecord) int {
	return ord.String.Size(v.ID) + ord.String.Size(v.Text) + VectorMUS.Size(v.Vector)
}

func (vectorRecordMUS) Marshal(v core.VectorRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Text, bs[n:])
	n += VectorMUS.Marshal(v.Vector, bs[n:])
	return n
}

func (vectorRecordMUS) Unmarshal(bs []byte) (v core.VectorRecord, n int, err error) {
	d := &decoder{bs: bs}
	v.ID = next(d, ord.String)
	v.Text = next(d, ord.String)
	v.Vector = vectorMUS{}.decodeInto(d, nil)
	return v, d.n, d.err
}

type metadataMUS struct{}

func (metadataMUS) Size(m *core.VideoMetadata) int {
	if m == nil {
		return ord.Bool.Size(false)
	}
	return ord.Bool.Size(true) +
		ord.String.Size(m.Title) +
		ord.String.Size(m.Description) +
		ord.String.Size(m.Uploader) +
		ord.String.Size(m.UploadDate) +
		varint.Int64.Size(int64(m.Duration)) +
		varint.Int64.Size(m.ViewCount) +
		varint.Int64.Size(m.LikeCount) +
		stringsSize(m.Categories) +
		stringsSize(m.Tags) +
		ord.String.Size(m.URL)
}

func (metadataMUS) Marshal(m *core.VideoMetadata, bs []byte) (n int) {
	n = ord.Bool.Marshal(m != nil, bs)
	if m == nil {
		return n
	}
	n += ord.String.Marshal(m.Title, bs[n:])
	n += ord.String.Marshal(m.Description, bs[n:])
	n += ord.String.Marshal(m.Uploader, bs[n:])
	n += ord.String.Marshal(m.UploadDate, bs[n:])
	n += varint.Int64.Marshal(int64(m.Duration), bs[n:])
	n += varint.Int64.Marshal(m.ViewCount, bs[n:])
	n += varint.Int64.Marshal(m.LikeCount, bs[n:])
	n += marshalStrings(m.Categories, bs[n:])
	n += marshalStrings(m.Tags, bs[n:])
	n += ord.String.Marshal(m.URL, bs[n:])
	return n
}

func (metadataMUS) decode(d *decoder) *core.VideoMetadata {
	if !next(d, ord.Bool) || d.err != nil {
		return nil
	}
	m := &core.VideoMetadata{}
	m.Title = next(d, ord.String)
	m.Description = next(d, ord.String)
	m.Uploader = next(d, ord.String)
	m.UploadDate = next(d, ord.String)
	m.Duration = time.Duration(next(d, varint.Int64))
	m.ViewCount = next(d, varint.Int64)
	m.LikeCount = next(d, varint.Int64)
	m.Categories = d.strings()
	m.Tags = d.strings()
	m.URL = next(d, ord.String)
	if d.err != nil {
		return nil
	}
	return m
}

type transcriptMUS struct{}

func (transcriptMUS) Size(t core.Transcript) int {
	return ord.String.Size(string(t.Namespace)) +
		ord.String.Size(t.Title) +
		ord.String.Size(t.Text) +
		raw.Uint64.Size(uint64(t.Fingerprint)) +
		metadataMUS{}.Size(t.Metadata) +
		timeSize(t.CreatedAt)
}

func (transcriptMUS) Marshal(t core.Transcript, bs []byte) (n int) {
	n = ord.String.Marshal(string(t.Namespace), bs)
	n += ord.String.Marshal(t.Title, bs[n:])
	n += ord.String.Marshal(t.Text, bs[n:])
	n += raw.Uint64.Marshal(uint64(t.Fingerprint), bs[n:])
	n += metadataMUS{}.Marshal(t.Metadata, bs[n:])
	n += marshalTime(t.CreatedAt, bs[n:])
	return n
}

func (transcriptMUS) Unmarshal(bs []byte) (t core.Transcript, n int, err error) {
	d := &decoder{bs: bs}
	t.Namespace = core.Namespace(next(d, ord.String))
	t.Title = next(d, ord.String)
	t.Text = next(d, ord.String)
	t.Fingerprint = core.ID(next(d, raw.Uint64))
	t.Metadata = metadataMUS{}.decode(d)
	t.CreatedAt = d.time()
	return t, d.n, d.err
}

type indexSpecMUS struct{}

func (indexSpecMUS) Size(s IndexSpec) int {
	return ord.String.Size(s.Name) + varint.Int.Size(s.Dimension) + ord.String.Size(string(s.Metric))
}

func (indexSpecMUS) Marshal(s IndexSpec, bs []byte) (n int) {
	n = ord.String.Marshal(s.Name, bs)
	n += varint.Int.Marshal(s.Dimension, bs[n:])
	n += ord.String.Marshal(string(s.Metric), bs[n:])
	return n
}

func (indexSpecMUS) Unmarshal(bs []byte) (s IndexSpec, n int, err error) {
	d := &decoder{bs: bs}
	s.Name = next(d, ord.String)
	s.Dimension = next(d, varint.Int)
	s.Metric = Metric(next(d, ord.String))
	return s, d.n, d.err
}

func marshal[T any](ser Serializer[T], v T) []byte {
	buf := make([]byte, ser.Size(v))
	ser.Marshal(v, buf)
	return buf
}

func unmarshal[T any](ser Serializer[T], data []byte) (T, error) {
	v, n, err := ser.Unmarshal(data)
	if err != nil {
		return v, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return v, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	return v, nil
}

// EncodeVector serializes a vector on its own, as stored in sqlite blobs.
func EncodeVector(v []float32) []byte {
	return marshal(VectorMUS, v)
}

// DecodeVector deserializes bytes written by EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	return DecodeVectorInto(nil, data)
}

// DecodeVectorInto decodes into buf, reusing its storage when large enough.
func DecodeVectorInto(buf []float32, data []byte) ([]float32, error) {
	d := &decoder{bs: data}
	buf = vectorMUS{}.decodeInto(d, buf)
	if d.err != nil {
		return nil, d.err
	}
	if d.n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrTruncatedData, len(data)-d.n)
	}
	return buf, nil
}

func MarshalVectorRecord(record core.VectorRecord) []byte {
	return marshal(VectorRecordMUS, record)
}

func UnmarshalVectorRecord(data []byte) (core.VectorRecord, error) {
	return unmarshal(VectorRecordMUS, data)
}

func MarshalTranscript(t *core.Transcript) []byte {
	return marshal(TranscriptMUS, *t)
}

func UnmarshalTranscript(data []byte) (*core.Transcript, error) {
	t, err := unmarshal(TranscriptMUS, data)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func MarshalIndexSpec(spec IndexSpec) []byte {
	return marshal(IndexSpecMUS, spec)
}

func UnmarshalIndexSpec(data []byte) (IndexSpec, error) {
	return unmarshal(IndexSpecMUS, data)
}
