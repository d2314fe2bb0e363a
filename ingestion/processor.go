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


package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/vidrag/ai"
)

// Progress receives chunk-level progress from an ingestion run.
// Implementations must be thread-safe; Increment is called from pool workers.
type Progress interface {
	Start(total int)
	Increment(delta int)
	Finish()
}

type noopProgress struct{}

func (noopProgress) Start(int)     {}
func (noopProgress) Increment(int) {}
func (noopProgress) Finish()       {}

// embeddingProcessor embeds chunk texts in batches on a worker pool.
type embeddingProcessor struct {
	embedder  ai.Embedder
	pool      *ants.Pool
	batchSize int
	progress  Progress
	logger    *slog.Logger
}

// process returns one vector per text, in input order. It waits for every
// submitted batch; the first failure cancels batches that have not started.
func (ep *embeddingProcessor) process(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][]float32, len(texts))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for start := 0; start < len(texts); start += ep.batchSize {
		end := min(start+ep.batchSize, len(texts))
		wg.Add(1)
		err := ep.pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}
			batch, err := ep.embedder.EmbedTexts(ctx, texts[start:end])
			if err != nil {
				ep.logger.Error("error generating embeddings", "batch_start", start, "err", err)
				fail(err)
				return
			}
			if len(batch) != end-start {
				fail(fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingCountMismatch, end-start, len(batch)))
				return
			}
			copy(vectors[start:end], batch)
			ep.progress.Increment(end - start)
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}
