package store

import (
	"fmt"
	"testing"

	"github.com/jobradar/jobradar/internal/model"
)

func makeRecords(n int) []*model.MatchRecord {
	records := make([]*model.MatchRecord, n)
	for i := range records {
		records[i] = &model.MatchRecord{UserID: "u", PostingID: fmt.Sprintf("p%d", i)}
	}
	return records
}

func TestChunkRecords(t *testing.T) {
	tests := []struct {
		name  string
		total int
		size  int
		want  []int
	}{
		{name: "empty", total: 0, size: 3, want: nil},
		{name: "single partial chunk", total: 2, size: 3, want: []int{2}},
		{name: "exact multiple", total: 6, size: 3, want: []int{3, 3}},
		{name: "remainder", total: 7, size: 3, want: []int{3, 3, 1}},
		{name: "size one", total: 3, size: 1, want: []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := chunkRecords(makeRecords(tt.total), tt.size)
			if len(chunks) != len(tt.want) {
				t.Fatalf("got %d chunks, want %d", len(chunks), len(tt.want))
			}

			seen := 0
			for i, chunk := range chunks {
				if len(chunk) != tt.want[i] {
					t.Fatalf("chunk %d has %d records, want %d", i, len(chunk), tt.want[i])
				}
				for _, r := range chunk {
					if r.PostingID != fmt.Sprintf("p%d", seen) {
						t.Fatalf("chunk %d out of order: got %s", i, r.PostingID)
					}
					seen++
				}
			}
		})
	}
}

func TestNewMatchStoreClampsBatchLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "zero falls back to default", limit: 0, want: defaultBatchLimit},
		{name: "negative falls back to default", limit: -5, want: defaultBatchLimit},
		{name: "in range kept", limit: 300, want: 300},
		{name: "above cap clamped", limit: 9000, want: maxBatchLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMatchStore(nil, tt.limit)
			if s.batchLimit != tt.want {
				t.Fatalf("batch limit = %d, want %d", s.batchLimit, tt.want)
			}
		})
	}
}
