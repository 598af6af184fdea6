package llm

import "context"

type callLabels struct {
	purpose string
	date    string
}

type labelsKey struct{}

func labelsFrom(ctx context.Context) callLabels {
	l, _ := ctx.Value(labelsKey{}).(callLabels)
	return l
}

// WithPurpose names the kind of call made under ctx, for the request log.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	l := labelsFrom(ctx)
	l.purpose = purpose
	return context.WithValue(ctx, labelsKey{}, l)
}

// WithDate records the question date a call generates for.
func WithDate(ctx context.Context, date string) context.Context {
	l := labelsFrom(ctx)
	l.date = date
	return context.WithValue(ctx, labelsKey{}, l)
}

// PurposeFrom returns the purpose set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if p := labelsFrom(ctx).purpose; p != "" {
		return p
	}
	return "unknown"
}

// DateFrom returns the date set by WithDate, or "".
func DateFrom(ctx context.Context) string {
	return labelsFrom(ctx).date
}
