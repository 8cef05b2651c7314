package resolve

import "context"

// Fetcher retrieves the body of a URL, consulting the response cache first.
//
//go:generate mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}
