package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-pos-backoffice/internal/ledger"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"github.com/google/generative-ai-go/genai"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTools struct {
	start, end time.Time
	err        error
}

func (f *fakeTools) Inventory(context.Context) ([]models.Product, error) {
	return []models.Product{{ID: "p1", SKU: "TEA", Name: "Tea", Quantity: 3, SellingPrice: decimal.NewFromInt(4), BuyingPrice: decimal.NewFromInt(2)}}, f.err
}

func (f *fakeTools) SalesSummary(_ context.Context, start, end time.Time) (*store.SalesSummary, error) {
	f.start, f.end = start, end
	return &store.SalesSummary{TotalRevenue: decimal.NewFromInt(120), TotalCount: 7}, f.err
}

func (f *fakeTools) DebtStatistics(context.Context) (*ledger.Statistics, error) {
	return &ledger.Statistics{TotalDebt: decimal.NewFromInt(90), ActiveDebtCount: 2}, f.err
}

func TestAsk_NotConfigured(t *testing.T) {
	_, err := NewAgent("", &fakeTools{}, zap.NewNop()).Ask(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCallTool_SalesReport(t *testing.T) {
	tools := &fakeTools{}
	a := NewAgent("key", tools, zap.NewNop())

	resp := a.callTool(context.Background(), genai.FunctionCall{
		Name: "get_sales_report",
		Args: map[string]any{"start_date": "2026-03-01", "end_date": "2026-03-31"},
	})
	assert.Equal(t, "get_sales_report", resp.Name)
	assert.Equal(t, "120.00", resp.Response["revenue"])
	assert.Equal(t, int64(7), resp.Response["sales_count"])
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), tools.start)
	assert.Equal(t, 31, tools.end.Day())
	assert.Equal(t, 23, tools.end.Hour())
}

func TestCallTool_BadDates(t *testing.T) {
	a := NewAgent("key", &fakeTools{}, zap.NewNop())
	resp := a.callTool(context.Background(), genai.FunctionCall{
		Name: "get_sales_report",
		Args: map[string]any{"start_date": "March", "end_date": "2026-03-31"},
	})
	assert.Contains(t, resp.Response["error"], "YYYY-MM-DD")
}

func TestCallTool_InventoryAndDebts(t *testing.T) {
	a := NewAgent("key", &fakeTools{}, zap.NewNop())
	ctx := context.Background()

	inv := a.callTool(ctx, genai.FunctionCall{Name: "check_inventory"})
	require.Contains(t, inv.Response, "inventory")

	debts := a.callTool(ctx, genai.FunctionCall{Name: "get_debt_statistics"})
	assert.Equal(t, "90.00", debts.Response["total_debt"])
	assert.Equal(t, 2, debts.Response["active_debts"])
}

func TestCallTool_Failures(t *testing.T) {
	a := NewAgent("key", &fakeTools{err: errors.New("db down")}, zap.NewNop())
	ctx := context.Background()

	resp := a.callTool(ctx, genai.FunctionCall{Name: "get_debt_statistics"})
	assert.Equal(t, "db down", resp.Response["error"])

	resp = a.callTool(ctx, genai.FunctionCall{Name: "update_product_price"})
	assert.Contains(t, resp.Response["error"], "unknown tool")
}

func TestTextOf(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("Tea has 3 units left.")}},
	}}}
	assert.Equal(t, "Tea has 3 units left.", textOf(resp))
	assert.Empty(t, functionCalls(resp))
}
