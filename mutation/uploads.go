package mutation

import "context"

type uploadsKey struct{}

// WithUploads stores out-of-band payload values, typically decoded from a
// multipart request body, on the context. Create and update merge them into
// the input payload before validation; they win over same-named input
// values.
func WithUploads(ctx context.Context, values map[string]any) context.Context {
	if len(values) == 0 {
		return ctx
	}
	return context.WithValue(ctx, uploadsKey{}, values)
}

// UploadsFrom returns the out-of-band payload values on the context, or nil.
func UploadsFrom(ctx context.Context) map[string]any {
	values, _ := ctx.Value(uploadsKey{}).(map[string]any)
	return values
}

func mergeUploads(ctx context.Context, data map[string]any) {
	for k, v := range UploadsFrom(ctx) {
		data[k] = v
	}
}
