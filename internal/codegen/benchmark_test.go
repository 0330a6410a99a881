package codegen

import "testing"

var benchResult *Result

func BenchmarkGenerate(b *testing.B) {
	src := []byte(`package calc

import "context"

//xtimed:wrap
func addImpl(a, b int) int { return a + b }

//xtimed:wrap private name=calc,fetch meta=map[string]any{"key": key}
func fetchImpl(ctx context.Context, key string) ([]byte, error) {
	return nil, nil
}
`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res, err := Generate("calc.go", src, Options{})
		if err != nil {
			b.Fatal(err)
		}
		benchResult = res
	}
}
