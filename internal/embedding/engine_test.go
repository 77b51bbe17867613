package embedding

import (
	"math"
	"testing"

	"google.golang.org/genai"
)

// The embed calls pass an EmbedContentConfig with a string task type; keep a
// reference here so an SDK surface change fails this package, not just the
// engine file.
var _ = genai.EmbedContentConfig{TaskType: embedTaskType}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a       []float32
		b       []float32
		want    float64
		wantErr bool
	}{
		{name: "Identical", a: []float32{1, 0, 0}, b: []float32{1, 0, 0}, want: 1.0},
		{name: "Orthogonal", a: []float32{1, 0, 0}, b: []float32{0, 1, 0}, want: 0.0},
		{name: "Opposite", a: []float32{1, 0, 0}, b: []float32{-1, 0, 0}, want: -1.0},
		{name: "ZeroVector", a: []float32{0, 0, 0}, b: []float32{1, 2, 3}, want: 0.0},
		{name: "LengthMismatch", a: []float32{1, 0}, b: []float32{1, 0, 0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenAIEngineDefaults(t *testing.T) {
	if _, err := NewGenAIEngine("", "gemini-embedding-001"); err == nil {
		t.Fatal("missing API key should error")
	}

	e := &GenAIEngine{model: "gemini-embedding-001"}
	if got := e.Dimensions(); got != 3072 {
		t.Errorf("Dimensions() = %d, want 3072", got)
	}
	if got := e.Name(); got != "genai:gemini-embedding-001" {
		t.Errorf("Name() = %q", got)
	}
}

func TestNewEngineNoneProvider(t *testing.T) {
	engine, err := NewEngine(Config{Provider: "none"})
	if err != nil {
		t.Fatalf("none provider should not error: %v", err)
	}
	if engine != nil {
		t.Errorf("none provider should yield a nil engine")
	}

	if _, err := NewEngine(Config{Provider: "faiss"}); err == nil {
		t.Errorf("unknown provider should error")
	}
}
