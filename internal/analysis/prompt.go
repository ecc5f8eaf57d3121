package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Dan9191/money-dashboard/internal/models"
	"google.golang.org/genai"
)

const systemPrompt = "You are a financial analyst specializing in transaction categorization and pattern recognition. " +
	"Analyze bank transactions to identify recurring payments, one-time purchases, paychecks, and bonuses."

type promptTransaction struct {
	Index       int     `json:"index"`
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Vendor      string  `json:"vendor"`
	Description string  `json:"description"`
	Pending     bool    `json:"pending"`
}

func buildPrompt(txns []models.Transaction, paycheck *float64, bonus *models.BonusRange) (string, error) {
	rows := make([]promptTransaction, len(txns))
	for i, t := range txns {
		rows[i] = promptTransaction{
			Index:       i,
			ID:          t.ID,
			Date:        t.Date,
			Amount:      t.Amount,
			Vendor:      t.Vendor,
			Description: t.Description,
			Pending:     t.Pending,
		}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode transactions: %w", err)
	}

	paycheckText := "variable amounts"
	paycheckRule := "regular deposits of a similar size"
	if paycheck != nil {
		paycheckText = fmt.Sprintf("~$%.2f", *paycheck)
		paycheckRule = fmt.Sprintf("deposits around $%.2f", *paycheck)
	}
	bonusText := "variable amounts"
	bonusRule := "much larger deposits"
	if bonus != nil {
		bonusText = fmt.Sprintf("$%.2f-$%.2f", bonus.Min, bonus.Max)
		bonusRule = fmt.Sprintf("much larger deposits ($%.2f+)", bonus.Min)
	}

	var b strings.Builder
	b.WriteString("Analyze the following bank transactions.\n\n")
	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "- Expected paycheck deposits: %s every 2 weeks\n", paycheckText)
	fmt.Fprintf(&b, "- Expected bonus deposits: %s (much larger than normal deposits, paid quarterly on the last paycheck of the month after a quarter ends)\n", bonusText)
	b.WriteString("- Amounts are positive for money in and negative for money out\n\n")
	b.WriteString("Transactions:\n")
	b.Write(data)
	b.WriteString("\n\nRules:\n")
	b.WriteString("1. Automated payments are recurring transactions with consistent amounts\n")
	b.WriteString("2. Anomalies are one-off large purchases, transfers, or unusual transactions\n")
	fmt.Fprintf(&b, "3. Paychecks are %s\n", paycheckRule)
	fmt.Fprintf(&b, "4. Bonuses are %s that are irregular\n", bonusRule)
	fmt.Fprintf(&b, "5. Categories must be one of: %s\n", joinCategories())
	b.WriteString("6. Refer to transactions by their index\n")
	b.WriteString("7. Be conservative with automated payment detection, only include truly recurring payments\n")
	return b.String(), nil
}

func joinCategories() string {
	names := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func enumOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func indexed(props map[string]*genai.Schema, required ...string) *genai.Schema {
	props["transaction_index"] = &genai.Schema{Type: genai.TypeInteger, Minimum: genai.Ptr(0.0)}
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
			Required:   append([]string{"transaction_index"}, required...),
		},
	}
}

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"automated_payments": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"vendor":          {Type: genai.TypeString},
					"amount":          {Type: genai.TypeNumber},
					"frequency":       {Type: genai.TypeString, Enum: enumOf(models.Frequencies)},
					"last_occurrence": {Type: genai.TypeString, Format: "date-time"},
					"category":        {Type: genai.TypeString, Enum: enumOf(models.Categories)},
				},
				Required: []string{"vendor", "amount", "frequency", "last_occurrence", "category"},
			},
		},
		"anomalies": indexed(map[string]*genai.Schema{
			"reason": {Type: genai.TypeString},
		}, "reason"),
		"paychecks": indexed(map[string]*genai.Schema{
			"amount":   {Type: genai.TypeNumber},
			"date":     {Type: genai.TypeString},
			"is_bonus": {Type: genai.TypeBoolean},
		}, "amount", "date", "is_bonus"),
		"bonuses": indexed(map[string]*genai.Schema{
			"amount": {Type: genai.TypeNumber},
			"date":   {Type: genai.TypeString},
		}, "amount", "date"),
		"categories": indexed(map[string]*genai.Schema{
			"category":   {Type: genai.TypeString, Enum: enumOf(models.Categories)},
			"confidence": {Type: genai.TypeNumber, Minimum: genai.Ptr(0.0), Maximum: genai.Ptr(1.0)},
		}, "category", "confidence"),
	},
	Required: []string{"automated_payments", "anomalies", "paychecks", "bonuses", "categories"},
}
