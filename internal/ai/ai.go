// Package ai is the admin analytics assistant: a Gemini chat that may answer
// questions by running SELECT queries against the read-only replica.
package ai

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	defaultModel = "gemini-1.5-flash"
	sqlToolName  = "run_readonly_sql"
	// maxToolCalls bounds the function-call loop of one question.
	maxToolCalls = 5
	maxRows      = 200
)

var ErrNotReadOnly = errors.New("only single SELECT statements are allowed")

// writeKeyword matches statements that could change data or schema.
var writeKeyword = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|REPLACE|DROP|ALTER|CREATE|TRUNCATE|GRANT|REVOKE|LOCK|CALL|SET|LOAD|HANDLER|RENAME|INTO\s+OUTFILE)\b`)

// secretColumn matches columns the assistant must never read.
var secretColumn = regexp.MustCompile(`(?i)\b(password_hash|access_token|refresh_token|verification_code|code_verifier)\b`)

// AIService holds the Gemini client and the read-only database connection.
type AIService struct {
	Client *genai.Client
	DB     *sql.DB
	Model  string
	Log    *zap.Logger
}

// NewAIService initializes the Gemini client.
func NewAIService(ctx context.Context, apiKey, model string, dbReadOnly *sql.DB, log *zap.Logger) (*AIService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &AIService{Client: client, DB: dbReadOnly, Model: model, Log: log}, nil
}

// Close releases the Gemini client.
func (s *AIService) Close() error {
	return s.Client.Close()
}

// GenerateResponse answers userMessage and returns the text and the tokens used.
func (s *AIService) GenerateResponse(ctx context.Context, userMessage string) (string, int, error) {
	model := s.Client.GenerativeModel(s.Model)

	// 1. Define Tools
	model.Tools = []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        sqlToolName,
			Description: "Executes a READ-ONLY SQL query (SELECT only) to answer questions about the marketplace.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"query": {
						Type:        genai.TypeString,
						Description: "The MySQL SELECT query to execute.",
					},
				},
				Required: []string{"query"},
			},
		}},
	}}

	// 2. System Instructions
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(fmt.Sprintf(`
			You are the CollabHub admin assistant. You help administrators oversee brands,
			influencers, campaigns and MOUs.
			Access: MySQL database (%s).
			Schema: %s
			Rules: SELECT only. Never select tokens, passwords or verification codes. Be concise.
		`, sqlToolName, Schema))},
	}

	// 3. Execute Chat
	cs := model.StartChat()
	res, err := cs.SendMessage(ctx, genai.Text(userMessage))
	if err != nil {
		return "", 0, fmt.Errorf("error sending message: %w", err)
	}
	totalTokens := usage(res)

	// 4. Resolve function calls until the model answers in text
	for calls := 0; ; calls++ {
		if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
			return "No response.", totalTokens, nil
		}
		part := res.Candidates[0].Content.Parts[0]

		funcCall, ok := part.(genai.FunctionCall)
		if !ok {
			return fmt.Sprintf("%v", part), totalTokens, nil
		}
		if funcCall.Name != sqlToolName {
			return "", totalTokens, fmt.Errorf("unknown function: %s", funcCall.Name)
		}
		if calls >= maxToolCalls {
			return "", totalTokens, fmt.Errorf("assistant exceeded %d queries", maxToolCalls)
		}

		query, _ := funcCall.Args["query"].(string)
		s.logger().Info("assistant running sql", zap.String("query", query))

		result, err := s.RunReadOnlyQuery(ctx, query)
		if err != nil {
			result = fmt.Sprintf("SQL Error: %v", err)
		}

		res, err = cs.SendMessage(ctx, genai.FunctionResponse{
			Name:     sqlToolName,
			Response: map[string]any{"result": result},
		})
		if err != nil {
			return "", totalTokens, fmt.Errorf("tool response error: %w", err)
		}
		// UsageMetadata is cumulative for the chat.
		if n := usage(res); n > 0 {
			totalTokens = n
		}
	}
}

func usage(res *genai.GenerateContentResponse) int {
	if res == nil || res.UsageMetadata == nil {
		return 0
	}
	return int(res.UsageMetadata.TotalTokenCount)
}

// CheckReadOnly rejects anything but a single SELECT (or WITH ... SELECT)
// statement, and queries touching secret columns.
func CheckReadOnly(query string) error {
	q := strings.TrimSpace(query)
	q = strings.TrimSuffix(q, ";")
	if q == "" || strings.Contains(q, ";") {
		return ErrNotReadOnly
	}
	upper := strings.ToUpper(q)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return ErrNotReadOnly
	}
	if writeKeyword.MatchString(q) {
		return ErrNotReadOnly
	}
	if secretColumn.MatchString(q) {
		return fmt.Errorf("%w: query references a secret column", ErrNotReadOnly)
	}
	return nil
}

// RunReadOnlyQuery runs a checked SELECT and returns up to maxRows rows as JSON.
func (s *AIService) RunReadOnlyQuery(ctx context.Context, query string) (string, error) {
	if err := CheckReadOnly(query); err != nil {
		return "", err
	}

	rows, err := s.DB.QueryContext(ctx, strings.TrimSuffix(strings.TrimSpace(query), ";"))
	if err != nil {
		return "", err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", err
	}

	tableData := []map[string]any{}
	for rows.Next() && len(tableData) < maxRows {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", err
		}

		entry := make(map[string]any, len(columns))
		for i, col := range columns {
			// SELECT * never names a secret column, so drop them by result name too.
			if secretColumn.MatchString(col) {
				continue
			}
			if b, ok := values[i].([]byte); ok {
				entry[col] = string(b)
			} else {
				entry[col] = values[i]
			}
		}
		tableData = append(tableData, entry)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	jsonData, err := json.Marshal(tableData)
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (s *AIService) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// Schema is the table overview given to the model. Secret columns are left out.
const Schema = `
	- users (id, role [BRAND, INFLUENCER, ADMIN], status [UNVERIFIED, ACTIVE, SUSPENDED], email, full_name, created_at)
	- brands (id, user_id, company_name, slug, industry, website, created_at)
	- influencers (id, user_id, display_name, bio, niche, location, created_at)
	- influencer_platforms (id, influencer_id, platform [TIKTOK, INSTAGRAM], handle, followers, following, likes, media_count, engagement_rate, connected, last_synced_at, last_error)
	- rate_cards (id, influencer_id, platform, service_type [POST, STORY, REEL, VIDEO, LIVE], price, currency)
	- campaigns (id, brand_id, title, platform, budget, start_date, end_date, status [DRAFT, ACTIVE, PAUSED, COMPLETED, CANCELLED])
	- campaign_invitations (id, campaign_id, influencer_id, status [PENDING, ACCEPTED, DECLINED, WITHDRAWN], responded_at, created_at)
	- mous (id, campaign_id, brand_id, influencer_id, title, amount, currency, brand_approval, influencer_approval, admin_approval, status [PENDING, APPROVED, REJECTED], rejection_reason, created_at)
	- campaign_snapshots (id, campaign_id, influencer_id, platform, followers, likes, followers_growth, likes_growth, growth_rate, captured_at)
	- notifications (id, user_id, message, is_read, created_at)
	`
