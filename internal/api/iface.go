package api

import (
	"context"
	"io"
)

// GuruAPI defines the interface for the Gurubase API client.
// *Client satisfies this interface. The controllers and tests use narrower
// slices of it.
type GuruAPI interface {
	Summary(ctx context.Context, req SummaryRequest) (*SummaryResponse, error)
	StreamAnswer(ctx context.Context, guruType string, req AnswerRequest, scopedToken string) (io.ReadCloser, error)
	SlugDetails(ctx context.Context, slug, guruType, bingeID, question string) (*SlugDetails, error)
	CreateBinge(ctx context.Context, guruType, rootSlug string) (string, error)
	BingeData(ctx context.Context, guruType, bingeID string) (*BingeData, error)
	FollowUpQuestions(ctx context.Context, guruType, bingeID, slug, question string) ([]string, error)
	ListGurus(ctx context.Context) ([]Guru, error)
}

var _ GuruAPI = (*Client)(nil)
