// Package ai runs the administrator assistant: a Gemini model that answers
// questions about stock, sales and debts by calling back into the back-office.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-pos-backoffice/internal/ledger"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	defaultModel = "gemini-2.0-flash-001"
	// maxToolRounds bounds how many tool calls one question may trigger.
	maxToolRounds = 5
)

var ErrNotConfigured = errors.New("assistant is not configured")

// Toolbox is what the assistant can read.
type Toolbox interface {
	Inventory(ctx context.Context) ([]models.Product, error)
	SalesSummary(ctx context.Context, start, end time.Time) (*store.SalesSummary, error)
	DebtStatistics(ctx context.Context) (*ledger.Statistics, error)
}

type Agent struct {
	apiKey string
	model  string
	tools  Toolbox
	log    *zap.Logger
	now    func() time.Time
}

func NewAgent(apiKey string, tools Toolbox, log *zap.Logger) *Agent {
	return &Agent{apiKey: apiKey, model: defaultModel, tools: tools, log: log, now: time.Now}
}

// Ask answers one question, running tool calls until the model replies with text.
func (a *Agent) Ask(ctx context.Context, question string) (string, error) {
	if a.apiKey == "" {
		return "", ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(a.model)
	model.Tools = []*genai.Tool{{FunctionDeclarations: declarations()}}
	model.SystemInstruction = genai.NewUserContent(genai.Text(a.systemPrompt()))

	session := model.StartChat()
	resp, err := session.SendMessage(ctx, genai.Text(question))
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			return textOf(resp), nil
		}
		replies := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			replies = append(replies, a.callTool(ctx, call))
		}
		if resp, err = session.SendMessage(ctx, replies...); err != nil {
			return "", fmt.Errorf("send tool results: %w", err)
		}
	}
	a.log.Warn("assistant stopped after too many tool calls", zap.Int("rounds", maxToolRounds))
	return textOf(resp), nil
}

func (a *Agent) systemPrompt() string {
	return fmt.Sprintf(`Today is %s. You are the back-office assistant of a retail shop.

RULES:
1. For PRICE, COST, STOCK or DETAILS of a product, call 'check_inventory' and read the result. Never say you cannot see prices.
2. For sales or revenue over a period, call 'get_sales_report' with dates in YYYY-MM-DD.
3. For money customers still owe, overdue amounts or debt counts, call 'get_debt_statistics'.
4. You can only read data. If asked to change something, explain which screen to use.`, a.now().Format("2006-01-02"))
}

func declarations() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        "check_inventory",
			Description: "Get the full inventory list. Use this to find ANY product details like ID, name, SKU, price, cost or stock.",
		},
		{
			Name:        "get_sales_report",
			Description: "Get total sales revenue and number of sales for a date range.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
					"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
				},
				Required: []string{"start_date", "end_date"},
			},
		},
		{
			Name:        "get_debt_statistics",
			Description: "Get outstanding customer debt: total owed, overdue amount and counts.",
		},
	}
}

// callTool runs one function call and wraps the result for the model. Failures
// are reported to the model as an error field so it can tell the user.
func (a *Agent) callTool(ctx context.Context, call genai.FunctionCall) genai.FunctionResponse {
	result, err := a.runTool(ctx, call)
	if err != nil {
		a.log.Warn("assistant tool failed", zap.String("tool", call.Name), zap.Error(err))
		result = map[string]any{"error": err.Error()}
	}
	return genai.FunctionResponse{Name: call.Name, Response: result}
}

func (a *Agent) runTool(ctx context.Context, call genai.FunctionCall) (map[string]any, error) {
	switch call.Name {
	case "check_inventory":
		products, err := a.tools.Inventory(ctx)
		if err != nil {
			return nil, err
		}
		type simpleProduct struct {
			ID       string `json:"id"`
			SKU      string `json:"sku"`
			Name     string `json:"name"`
			Category string `json:"category"`
			Stock    int    `json:"stock"`
			Price    string `json:"price"`
			Cost     string `json:"cost"`
		}
		list := make([]simpleProduct, 0, len(products))
		for _, p := range products {
			list = append(list, simpleProduct{
				ID:       p.ID,
				SKU:      p.SKU,
				Name:     p.Name,
				Category: p.Category,
				Stock:    p.Quantity,
				Price:    p.SellingPrice.StringFixed(2),
				Cost:     p.BuyingPrice.StringFixed(2),
			})
		}
		return map[string]any{"inventory": list}, nil

	case "get_sales_report":
		start, errStart := parseDate(call.Args["start_date"])
		end, errEnd := parseDate(call.Args["end_date"])
		if errStart != nil || errEnd != nil {
			return nil, errors.New("dates must be in YYYY-MM-DD format")
		}
		end = end.Add(24*time.Hour - time.Nanosecond)

		summary, err := a.tools.SalesSummary(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"revenue":     summary.TotalRevenue.StringFixed(2),
			"sales_count": summary.TotalCount,
		}, nil

	case "get_debt_statistics":
		stats, err := a.tools.DebtStatistics(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"total_debt":         stats.TotalDebt.StringFixed(2),
			"active_debts":       stats.ActiveDebtCount,
			"overdue_amount":     stats.OverdueAmount.StringFixed(2),
			"overdue_debts":      stats.OverdueCount,
			"overdue_percentage": stats.OverduePercentage.StringFixed(2),
		}, nil
	}
	return nil, fmt.Errorf("unknown tool %q", call.Name)
}

func parseDate(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, errors.New("date must be a string")
	}
	return time.Parse("2006-01-02", s)
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if call, ok := part.(genai.FunctionCall); ok {
				calls = append(calls, call)
			}
		}
		break
	}
	return calls
}

func textOf(resp *genai.GenerateContentResponse) string {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				return string(txt)
			}
		}
	}
	return "I could not find an answer to that."
}
