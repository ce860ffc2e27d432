package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/contextrank/pkg/types"
)

func TestIsDomainTerm(t *testing.T) {
	tests := []struct {
		word string
		want bool
	}{
		{"user", true},
		{"users", true},
		{"ordering", true},
		{"payment", true},
		{"us", false},
		{"service", false},
		{"client", false},
		{"gateway", false},
		{"query", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsDomainTerm(tt.word), tt.word)
	}
}

func TestExtract(t *testing.T) {
	files := []types.SourceFile{
		{Path: "src/orders/orderService.js"},
		{Path: "src/orders/orderController.js"},
		{Path: "src/payments/paymentGateway.js"},
	}
	tables := map[string]types.SymbolTable{
		"src/orders/orderService.js": {
			Functions: []types.Symbol{{Name: "getOrder", StartLine: 2, EndLine: 2}},
			Exports:   []types.Symbol{{Name: "getOrder", StartLine: 2, EndLine: 2}},
			Imports:   []types.Symbol{{Name: "query", Module: "./db", StartLine: 1, EndLine: 1}},
		},
		"src/orders/orderController.js": {
			Functions: []types.Symbol{{Name: "showOrder", StartLine: 2, EndLine: 2}},
			Imports:   []types.Symbol{{Name: "getOrder", Module: "./orderService", StartLine: 1, EndLine: 1}},
		},
		"src/payments/paymentGateway.js": {
			Classes: []types.Symbol{{Name: "PaymentGateway", StartLine: 1, EndLine: 3}},
			Exports: []types.Symbol{{Name: "PaymentGateway", StartLine: 1, EndLine: 3}},
		},
	}

	got := Extract(files, tables)
	require.Len(t, got, 4)

	words := make([]string, len(got))
	for i, k := range got {
		words[i] = k.Keyword
	}
	assert.Equal(t, []string{"order", "payment", "orders", "payments"}, words)

	order := got[0]
	// filename 2+2, function 2+2, export 2, import 1
	assert.Equal(t, 11, order.Frequency)
	assert.Equal(t, []types.KeywordSource{
		types.SourceFilename, types.SourceFunction, types.SourceImport, types.SourceExport,
	}, order.Sources)
	assert.InDelta(t, 1.0, order.Confidence, 1e-9)
	assert.Equal(t, []string{"src/orders/orderController.js", "src/orders/orderService.js"}, order.RelatedFiles)

	payment := got[1]
	assert.Equal(t, 7, payment.Frequency)
	assert.Equal(t, []types.KeywordSource{types.SourceFilename, types.SourceClass, types.SourceExport}, payment.Sources)

	orders := got[2]
	assert.Equal(t, 2, orders.Frequency)
	assert.Equal(t, []types.KeywordSource{types.SourceDirectory}, orders.Sources)
	assert.InDelta(t, 0.5, orders.Confidence, 1e-9)

	assert.InDelta(t, 0.35, got[3].Confidence, 1e-9)
}

func TestExtract_TopFifteen(t *testing.T) {
	var files []types.SourceFile
	for _, stem := range domainStems[:20] {
		files = append(files, types.SourceFile{Path: "lib/" + stem + ".js"})
	}

	got := Extract(files, nil)
	require.Len(t, got, MaxKeywords)
	// equal rank falls back to alphabetical order
	assert.Equal(t, "account", got[0].Keyword)
	for _, k := range got {
		assert.Equal(t, 2, k.Frequency)
		assert.Equal(t, []types.KeywordSource{types.SourceFilename}, k.Sources)
	}
}

func TestExtract_GenericVocabularyDropped(t *testing.T) {
	files := []types.SourceFile{{Path: "src/utils/helpers.js"}}
	tables := map[string]types.SymbolTable{
		"src/utils/helpers.js": {Functions: []types.Symbol{{Name: "formatDate", StartLine: 1, EndLine: 1}}},
	}

	got := Extract(files, tables)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
