package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/dyt-client/internal/domain"
)

func TestMetadataFlow_Resolve(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		kind         domain.InputKind
		wantSearches int
		wantAnalyses int
		wantErr      bool
	}{
		{name: "empty", input: "   ", kind: domain.InputEmpty},
		{name: "too short", input: "ab", wantErr: true},
		{name: "url", input: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", kind: domain.InputDirectURL, wantAnalyses: 1},
		{name: "video id", input: " dQw4w9WgXcQ ", kind: domain.InputVideoID, wantAnalyses: 1},
		{name: "query", input: "never gonna give", kind: domain.InputSearchQuery, wantSearches: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &fakeService{}
			flow := NewMetadataFlow(service, nil)

			lookup, err := flow.Resolve(context.Background(), tt.input)
			searches, analyses, _ := service.calls()
			assert.Equal(t, tt.wantSearches, searches)
			assert.Equal(t, tt.wantAnalyses, analyses)

			if tt.wantErr {
				var validation *domain.ValidationError
				require.ErrorAs(t, err, &validation)
				assert.Equal(t, "type at least 3 characters to search", validation.Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, lookup.Kind)
		})
	}
}

func TestMetadataFlow_SearchNilIsEmpty(t *testing.T) {
	service := &fakeService{searchFn: func(string) ([]domain.SearchResult, error) { return nil, nil }}
	flow := NewMetadataFlow(service, nil)

	results, err := flow.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestMetadataFlow_AnalyzeWithoutMetadata(t *testing.T) {
	service := &fakeService{analyzeFn: func(string) (*domain.AnalysisResult, error) {
		return &domain.AnalysisResult{}, nil
	}}
	flow := NewMetadataFlow(service, nil)

	_, err := flow.Analyze(context.Background(), "dQw4w9WgXcQ")
	var serviceErr *domain.ServiceError
	assert.ErrorAs(t, err, &serviceErr)
}

func TestMetadataFlow_PropagatesServiceError(t *testing.T) {
	service := &fakeService{analyzeFn: func(string) (*domain.AnalysisResult, error) {
		return nil, &domain.ServiceError{Status: 404, Detail: "not found"}
	}}
	flow := NewMetadataFlow(service, nil)

	_, err := flow.Resolve(context.Background(), "dQw4w9WgXcQ")
	assert.Equal(t, "not found", domain.UserMessage(err))
}
