package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/aristath/holdings/internal/domain"
	"github.com/shopspring/decimal"
)

// formatMoney renders an amount in the reporting currency, rounded to the
// currency's minor unit.
func formatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

func formatPct(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

func formatDate(t time.Time) string {
	return t.Format(domain.DateLayout)
}

// emit writes v as indented JSON when -json is set, and as text otherwise.
func (a *App) emit(v any, text func(w *tabwriter.Writer)) error {
	if a.asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func (a *App) money(d decimal.Decimal) string {
	return formatMoney(d, a.cfg.ReportingCurrency)
}

func row(w io.Writer, cells ...string) {
	fmt.Fprintln(w, strings.Join(cells, "\t"))
}

func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", title)
}
