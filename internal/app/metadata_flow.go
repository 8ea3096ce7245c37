package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/dyt-client/internal/domain"
)

// Lookup is the outcome of resolving user input
type Lookup struct {
	Kind     domain.InputKind
	Input    string
	Results  []domain.SearchResult // set for search queries
	Analysis *domain.AnalysisResult // set for direct references
}

// MetadataFlow turns user input into search results or analyzed metadata
type MetadataFlow struct {
	service domain.VideoService
	logger  *zap.Logger
}

// NewMetadataFlow creates a new metadata flow
func NewMetadataFlow(service domain.VideoService, zapLogger *zap.Logger) *MetadataFlow {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &MetadataFlow{service: service, logger: zapLogger}
}

// Resolve classifies input and runs the matching request. Empty input
// returns a Lookup of kind InputEmpty without any request.
func (f *MetadataFlow) Resolve(ctx context.Context, input string) (*Lookup, error) {
	text := strings.TrimSpace(input)
	lookup := &Lookup{Kind: domain.Classify(text), Input: text}

	switch lookup.Kind {
	case domain.InputEmpty:
		return lookup, nil
	case domain.InputTooShort:
		return nil, &domain.ValidationError{Message: "type at least 3 characters to search"}
	case domain.InputDirectURL, domain.InputVideoID:
		analysis, err := f.Analyze(ctx, text)
		if err != nil {
			return nil, err
		}
		lookup.Analysis = analysis
		return lookup, nil
	default:
		results, err := f.Search(ctx, text)
		if err != nil {
			return nil, err
		}
		lookup.Results = results
		return lookup, nil
	}
}

// Analyze looks up a video or playlist
func (f *MetadataFlow) Analyze(ctx context.Context, urlOrID string) (*domain.AnalysisResult, error) {
	f.logger.Debug("Analyzing", zap.String("url", urlOrID))
	analysis, err := f.service.Analyze(ctx, urlOrID)
	if err != nil {
		f.logger.Warn("Analysis failed", zap.String("url", urlOrID), zap.Error(err))
		return nil, err
	}
	if analysis == nil || (analysis.Video == nil && analysis.Playlist == nil) {
		return nil, &domain.ServiceError{Detail: "the service returned no metadata"}
	}
	return analysis, nil
}

// Search runs a free-text search; no results is a valid answer
func (f *MetadataFlow) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	f.logger.Debug("Searching", zap.String("query", query))
	results, err := f.service.Search(ctx, query)
	if err != nil {
		f.logger.Warn("Search failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	return results, nil
}
