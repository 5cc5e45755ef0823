package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-storefront/internal/apperr"
	"go-storefront/internal/database"
	"go-storefront/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const maxToolRounds = 5

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("assistant is not configured")

// Tools is the read-only view of the store the assistant may consult.
type Tools interface {
	DashboardStats(ctx context.Context) (*database.DashboardStats, error)
	LowStock(ctx context.Context, threshold int) ([]models.Product, error)
	OrderByCode(ctx context.Context, code string) (*models.Order, error)
}

// Assistant answers back-office questions with Gemini, letting the model call
// Tools for live numbers.
type Assistant struct {
	apiKey string
	model  string
	tools  Tools
	now    func() time.Time
}

func NewAssistant(apiKey, model string, tools Tools) *Assistant {
	return &Assistant{apiKey: apiKey, model: model, tools: tools, now: time.Now}
}

func (a *Assistant) Enabled() bool {
	return a.apiKey != ""
}

func (a *Assistant) Ask(ctx context.Context, message string) (string, error) {
	if !a.Enabled() {
		return "", ErrDisabled
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel(a.model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt(a.now())))
	model.Tools = toolDeclarations()

	session := model.StartChat()
	resp, err := session.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", err
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			break
		}
		parts := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			parts = append(parts, genai.FunctionResponse{
				Name:     call.Name,
				Response: callTool(ctx, a.tools, call),
			})
		}
		if resp, err = session.SendMessage(ctx, parts...); err != nil {
			return "", err
		}
	}
	return replyText(resp), nil
}

func systemPrompt(now time.Time) string {
	return fmt.Sprintf(`Today is %s. You are the back-office assistant of an online store.

RULES:
1. Sales, order counts or order status breakdowns: call 'get_dashboard_stats'.
2. Questions about stock running out: call 'find_low_stock'.
3. A question about one order by its code (8 characters, e.g. K7Q2M9XA): call 'lookup_order'.
4. You can only read data. If asked to change anything, explain that changes are made in the admin panel.
5. Amounts are in the store currency; do not convert them.`, now.Format("2006-01-02"))
}

func toolDeclarations() []*genai.Tool {
	return []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        "get_dashboard_stats",
					Description: "Total sales excluding cancelled orders, order counts by status, active product count and best sellers.",
				},
				{
					Name:        "find_low_stock",
					Description: "List active products whose stock is at or below a threshold, scarcest first.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"threshold": {Type: genai.TypeInteger, Description: "Maximum stock to include (default 10)"},
						},
					},
				},
				{
					Name:        "lookup_order",
					Description: "Fetch one order with its lines by order code.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"code": {Type: genai.TypeString, Description: "The order code"},
						},
						Required: []string{"code"},
					},
				},
			},
		},
	}
}

const defaultLowStockThreshold = 10

// callTool runs one function call and packs the outcome for the model.
// Failures are reported to the model rather than aborting the chat.
func callTool(ctx context.Context, tools Tools, call genai.FunctionCall) map[string]interface{} {
	var (
		result interface{}
		err    error
	)
	switch call.Name {
	case "get_dashboard_stats":
		result, err = tools.DashboardStats(ctx)
	case "find_low_stock":
		threshold := defaultLowStockThreshold
		if v, ok := call.Args["threshold"].(float64); ok && v >= 0 {
			threshold = int(v)
		}
		var products []models.Product
		products, err = tools.LowStock(ctx, threshold)
		result = summarizeStock(products)
	case "lookup_order":
		code, _ := call.Args["code"].(string)
		if strings.TrimSpace(code) == "" {
			return map[string]interface{}{"error": "code is required"}
		}
		result, err = tools.OrderByCode(ctx, code)
	default:
		return map[string]interface{}{"error": fmt.Sprintf("unknown tool %q", call.Name)}
	}
	if err != nil {
		if apperr.Is(err, apperr.KindInternal) {
			return map[string]interface{}{"error": "the store data is unavailable right now"}
		}
		return map[string]interface{}{"error": apperr.Message(err)}
	}

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return map[string]interface{}{"error": "could not encode result"}
	}
	return map[string]interface{}{"result": string(jsonBytes)}
}

type stockLine struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

func summarizeStock(products []models.Product) []stockLine {
	out := make([]stockLine, len(products))
	for i, p := range products {
		out[i] = stockLine{ID: p.ID, Name: p.Name, Stock: p.Stock}
	}
	return out
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if call, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func replyText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "I could not find an answer."
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "I could not find an answer."
	}
	return b.String()
}
