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
	"errors"
	"fmt"

	"github.com/poiesic/vidrag/core"
)

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = core.ErrNotFound

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")

	// ErrIndexNameRequired indicates an IndexSpec without a name.
	ErrIndexNameRequired = fmt.Errorf("%w: index name is required", core.ErrConfiguration)

	// ErrInvalidDimension indicates a non-positive index dimension.
	ErrInvalidDimension = fmt.Errorf("%w: index dimension must be positive", core.ErrConfiguration)

	// ErrUnsupportedMetric indicates a metric other than MetricCosine.
	ErrUnsupportedMetric = fmt.Errorf("%w: unsupported similarity metric", core.ErrConfiguration)

	// ErrIndexMismatch indicates an existing index whose dimension or metric differs.
	ErrIndexMismatch = fmt.Errorf("%w: index exists with a different dimension or metric", core.ErrConfiguration)

	// ErrIndexNotReady indicates a vector operation before EnsureIndex.
	ErrIndexNotReady = fmt.Errorf("%w: index not ensured", core.ErrConfiguration)

	// ErrEmptyNamespace indicates an operation on the empty namespace.
	ErrEmptyNamespace = fmt.Errorf("%w: %w", core.ErrConfiguration, core.ErrEmptyNamespace)

	// ErrNonCanonicalNamespace indicates a namespace that Normalize would change.
	ErrNonCanonicalNamespace = fmt.Errorf("%w: namespace is not normalized", core.ErrConfiguration)
)

// CheckNamespace rejects empty and non-canonical namespaces.
func CheckNamespace(ns core.Namespace) error {
	if ns == "" {
		return ErrEmptyNamespace
	}
	if core.Normalize(string(ns)) != ns {
		return fmt.Errorf("%w: %q", ErrNonCanonicalNamespace, ns)
	}
	return nil
}
