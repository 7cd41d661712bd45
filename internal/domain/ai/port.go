package ai

import "context"

type Client interface {
	Analyze(ctx context.Context, findingsJSON string) (string, error)
}
