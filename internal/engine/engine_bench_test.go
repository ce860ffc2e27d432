package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/dshills/contextrank/pkg/types"
)

// syntheticProject builds n service/controller pairs around fake business
// nouns, each controller importing its service
func syntheticProject(n int) []types.SourceFile {
	faker := gofakeit.New(42)
	files := make([]types.SourceFile, 0, 2*n)
	for i := 0; i < n; i++ {
		noun := strings.ToLower(faker.Noun()) + fmt.Sprint(i)
		service := fmt.Sprintf("src/services/%sService.js", noun)
		files = append(files,
			types.SourceFile{
				Path: service,
				Content: fmt.Sprintf("export class %sService {\n  async find(id) { return db.get('%s', id) }\n  async save(%s) { return db.put(%s) }\n}\n// %s",
					noun, noun, noun, noun, faker.Sentence(12)),
			},
			types.SourceFile{
				Path: fmt.Sprintf("src/controllers/%sController.js", noun),
				Content: fmt.Sprintf("import { %sService } from '../services/%sService'\nexport function show(req) { return new %sService().find(req.id) }",
					noun, noun, noun),
			},
		)
	}
	return files
}

func BenchmarkAnalyzeProject(b *testing.B) {
	files := syntheticProject(100)
	ctx := context.Background()

	b.Run("full", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			e := New(WithWorkers(4))
			if _, err := e.AnalyzeProject(ctx, "bench", files, nil); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("incremental", func(b *testing.B) {
		e := New(WithWorkers(4))
		if _, err := e.AnalyzeProject(ctx, "bench", files, nil); err != nil {
			b.Fatal(err)
		}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := e.AnalyzeProject(ctx, "bench", files, nil); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkHybridSearch(b *testing.B) {
	files := syntheticProject(100)
	ctx := context.Background()
	e := New(WithEmbedder(&mockEmbedder{}))
	if _, err := e.AnalyzeProject(ctx, "bench", files, nil); err != nil {
		b.Fatal(err)
	}
	if _, err := e.GenerateEmbeddings(ctx, files, nil); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// distinct queries defeat the search snapshot
		if _, err := e.HybridSearch(ctx, fmt.Sprintf("service find %d", i), files); err != nil {
			b.Fatal(err)
		}
	}
}
