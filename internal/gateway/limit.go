package gateway

import (
	"context"

	"golang.org/x/time/rate"
)

type limited struct {
	next    Gateway
	limiter *rate.Limiter
}

// Limit paces every call to g through a token bucket of rps requests per
// second. rps <= 0 returns g unchanged.
func Limit(g Gateway, rps float64, burst int) Gateway {
	if rps <= 0 {
		return g
	}
	if burst <= 0 {
		burst = 1
	}
	return &limited{next: g, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *limited) Summarize(ctx context.Context, title, text string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.next.Summarize(ctx, title, text)
}

func (l *limited) DescribeImage(ctx context.Context, imageRef string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.next.DescribeImage(ctx, imageRef)
}

func (l *limited) DescribeLink(ctx context.Context, req LinkRequest) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.next.DescribeLink(ctx, req)
}

func (l *limited) DescribeButton(ctx context.Context, req ButtonRequest) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.next.DescribeButton(ctx, req)
}
