// Package render builds the Markdown replies sent to chat users.
package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/valyala/fastjson"

	"usersbox-bot/internal/usersbox"
)

const (
	MaxSources        = 3
	MaxRecords        = 2
	MaxValueLen       = 50
	MaxMessageLen     = 4000
	MaxMessageBatches = 3
)

// Separator divides per-source blocks and is where long replies are split.
var Separator = strings.Repeat("─", 30)

// Quota is the caller's remaining allowance shown under search results.
type Quota struct {
	AttemptsLeft int
}

// SearchResults renders a provider search answer. Replies longer than
// MaxMessageLen are split on Separator and only the first MaxMessageBatches
// parts are returned; the rest is dropped.
func SearchResults(total int, data usersbox.SearchData, quota Quota) []string {
	var b strings.Builder

	fmt.Fprintf(&b, "🎯 *Найдено результатов: %d*\n\n", total)

	for i, item := range data.Items {
		if i == MaxSources {
			break
		}
		fmt.Fprintf(&b, "📁 *База: %s/%s*\n",
			escapeMarkdown(orUnknown(item.Source.Database)), escapeMarkdown(orUnknown(item.Source.Collection)))
		fmt.Fprintf(&b, "📊 Найдено: %d записей\n", item.Hits.HitsCount)

		for j, raw := range item.Hits.Items {
			if j == MaxRecords {
				break
			}
			fmt.Fprintf(&b, "\n🔸 *Запись %d:*\n", j+1)
			writeRecord(&b, raw)
		}

		b.WriteString("\n" + Separator + "\n\n")
	}

	if extra := len(data.Items) - MaxSources; extra > 0 {
		fmt.Fprintf(&b, "... и еще %d источников\n\n", extra)
	}

	fmt.Fprintf(&b, "💡 Всего найдено записей: %d\n", total)
	fmt.Fprintf(&b, "💎 Осталось попыток: %d", quota.AttemptsLeft)

	return Split(b.String())
}

// Split enforces the Telegram message size limit on text.
func Split(text string) []string {
	if utf8.RuneCountInString(text) <= MaxMessageLen {
		return []string{text}
	}

	var parts []string
	for _, part := range strings.Split(text, Separator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parts = append(parts, part)
		if len(parts) == MaxMessageBatches {
			break
		}
	}
	return parts
}

// writeRecord prints the scalar fields of one record in provider order.
// Keys starting with "_" and nested objects are skipped.
func writeRecord(b *strings.Builder, raw []byte) {
	var p fastjson.Parser
	v, err := p.ParseBytes(raw)
	if err != nil {
		fmt.Fprintf(b, "• `%s`\n", inlineCode(truncate(string(raw))))
		return
	}

	obj, err := v.Object()
	if err != nil {
		fmt.Fprintf(b, "• `%s`\n", inlineCode(truncate(scalar(v))))
		return
	}

	obj.Visit(func(key []byte, val *fastjson.Value) {
		if strings.HasPrefix(string(key), "_") || val.Type() == fastjson.TypeObject {
			return
		}
		fmt.Fprintf(b, "• %s: `%s`\n", escapeMarkdown(string(key)), inlineCode(truncate(scalar(val))))
	})
}

func scalar(v *fastjson.Value) string {
	if v.Type() == fastjson.TypeString {
		return string(v.GetStringBytes())
	}
	return v.String()
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxValueLen {
		return s
	}
	return string([]rune(s)[:MaxValueLen]) + "..."
}

// inlineCode keeps a value from closing its surrounding code span.
func inlineCode(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
