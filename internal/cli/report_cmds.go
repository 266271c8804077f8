package cli

import (
	"context"
	"flag"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/aristath/holdings/internal/modules/properties"
	"github.com/aristath/holdings/internal/modules/reports"
	"github.com/google/subcommands"
)

// reportCmd builds one of the portfolio reports.
type reportCmd struct {
	app      *App
	account  string
	from, to string
	asOf     string
	gainType string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "portfolio reports" }
func (*reportCmd) Usage() string {
	return `ledger report [-account <id>] <allocation|income|activity|gainloss|holdings>

  allocation  value by category, account type, tax treatment and account (-as-of rebuilds past holdings)
  income      dividends, income and distributions by position, month and quarter (-from, -to)
  activity    transactions by type and month (-from, -to)
  gainloss    realized and unrealized gains (-gain-type, -from, -to)
  holdings    every position with its share of the portfolio
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Limit to one account (default: all)")
	f.StringVar(&c.from, "from", "", "First day (inclusive)")
	f.StringVar(&c.to, "to", "", "Last day (inclusive)")
	f.StringVar(&c.asOf, "as-of", "", "Allocation as of this date")
	f.StringVar(&c.gainType, "gain-type", "all", "realized, unrealized or all")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.app.usage("report: expected one report name, see 'ledger help report'")
	}
	rng, err := parseRange(c.from, c.to)
	if err != nil {
		return c.app.fail(err)
	}
	svc, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	rs := svc.ReportsService
	user := c.app.user

	switch f.Arg(0) {
	case "allocation":
		var asOf *time.Time
		if c.asOf != "" {
			d, err := parseDateFlag("as-of", c.asOf)
			if err != nil {
				return c.app.fail(err)
			}
			asOf = &d
		}
		r, err := rs.GetAllocationReport(ctx, user, c.account, asOf)
		if err != nil {
			return c.app.fail(err)
		}
		err = c.app.emit(r, func(w *tabwriter.Writer) { c.allocation(w, r) })
		if err != nil {
			return c.app.fail(err)
		}

	case "income":
		r, err := rs.GetIncomeReport(ctx, user, c.account, rng)
		if err != nil {
			return c.app.fail(err)
		}
		err = c.app.emit(r, func(w *tabwriter.Writer) { c.income(w, r) })
		if err != nil {
			return c.app.fail(err)
		}

	case "activity":
		r, err := rs.GetActivityReport(ctx, user, c.account, rng)
		if err != nil {
			return c.app.fail(err)
		}
		err = c.app.emit(r, func(w *tabwriter.Writer) { c.activity(w, r) })
		if err != nil {
			return c.app.fail(err)
		}

	case "gainloss":
		typ, err := reports.ParseGainLossType(c.gainType)
		if err != nil {
			return c.app.fail(err)
		}
		r, err := rs.GetGainLossReport(ctx, user, c.account, typ, rng)
		if err != nil {
			return c.app.fail(err)
		}
		err = c.app.emit(r, func(w *tabwriter.Writer) { c.gainLoss(w, r) })
		if err != nil {
			return c.app.fail(err)
		}

	case "holdings":
		r, err := rs.GetHoldingsReport(ctx, user, c.account)
		if err != nil {
			return c.app.fail(err)
		}
		err = c.app.emit(r, func(w *tabwriter.Writer) { c.holdings(w, r) })
		if err != nil {
			return c.app.fail(err)
		}

	default:
		return c.app.usage("report: unknown report %q", f.Arg(0))
	}
	return subcommands.ExitSuccess
}

func (c *reportCmd) allocation(w *tabwriter.Writer, r *reports.AllocationReport) {
	row(w, "Total value", c.app.money(r.TotalValue))
	row(w, "Concentration", strconv.FormatFloat(r.ConcentrationIndex, 'f', 4, 64))
	groups := []struct {
		title   string
		entries []reports.AllocationEntry
	}{
		{"By category", r.ByCategory},
		{"By account type", r.ByAccountType},
		{"By tax treatment", r.ByTaxTreatment},
		{"By account", r.ByAccount},
	}
	for _, g := range groups {
		heading(w, g.title)
		for _, e := range g.entries {
			row(w, e.Key, c.app.money(e.Value), formatPct(e.Percentage), strconv.Itoa(e.Positions))
		}
	}
}

func (c *reportCmd) income(w *tabwriter.Writer, r *reports.IncomeReport) {
	row(w, "Total income", c.app.money(r.Total))
	heading(w, "By position")
	row(w, "SYMBOL", "INCOME", "PAYMENTS", "YIELD ON COST", "CURRENT YIELD")
	for _, p := range r.ByPosition {
		row(w, p.Symbol, c.app.money(p.Income), strconv.Itoa(p.Payments), formatPct(p.YieldOnCost), formatPct(p.CurrentYield))
	}
	heading(w, "By month")
	for _, p := range r.ByMonth {
		row(w, p.Period, c.app.money(p.Amount), strconv.Itoa(p.Count))
	}
	heading(w, "By quarter")
	for _, p := range r.ByQuarter {
		row(w, p.Period, c.app.money(p.Amount), strconv.Itoa(p.Count))
	}
}

func (c *reportCmd) activity(w *tabwriter.Writer, r *reports.ActivityReport) {
	heading(w, "By type")
	for _, t := range r.ByType {
		row(w, string(t.Type), strconv.Itoa(t.Count), c.app.money(t.Amount), c.app.money(t.Fees))
	}
	heading(w, "By month")
	row(w, "MONTH", "IN", "OUT", "BUYS", "SELLS", "NET", "FEES")
	for _, m := range append(r.ByMonth, r.Totals) {
		period := m.Period
		if period == "" {
			period = "TOTAL"
		}
		row(w, period, c.app.money(m.Inflows), c.app.money(m.Outflows), c.app.money(m.Buys),
			c.app.money(m.Sells), c.app.money(m.NetFlow), c.app.money(m.Fees))
	}
}

func (c *reportCmd) gainLoss(w *tabwriter.Writer, r *reports.GainLossReport) {
	if len(r.Realized) > 0 {
		heading(w, "Realized")
		for _, e := range r.Realized {
			row(w, formatDate(*e.Date), e.Symbol, c.app.money(e.CostBasis), c.app.money(e.Value),
				c.app.money(e.GainLoss), formatPct(e.Percentage))
		}
	}
	if len(r.Unrealized) > 0 {
		heading(w, "Unrealized")
		for _, e := range r.Unrealized {
			row(w, e.Symbol, c.app.money(e.CostBasis), c.app.money(e.Value),
				c.app.money(e.GainLoss), formatPct(e.Percentage))
		}
	}
	heading(w, "Totals")
	row(w, "Realized", c.app.money(r.TotalRealized))
	row(w, "Unrealized", c.app.money(r.TotalUnrealized))
	row(w, "Gains", c.app.money(r.TotalGains))
	row(w, "Losses", c.app.money(r.TotalLosses))
	row(w, "Total", c.app.money(r.Total))
}

func (c *reportCmd) holdings(w *tabwriter.Writer, r *reports.HoldingsReport) {
	row(w, "SYMBOL", "ACCOUNT", "SHARES", "COST", "VALUE", "UNREALIZED", "WEIGHT")
	for _, h := range r.Holdings {
		row(w, h.Symbol, h.AccountName, h.Shares.String(), c.app.money(h.CostBasisTotal),
			c.app.money(h.CurrentValue), c.app.money(h.UnrealizedGain), formatPct(h.PercentOfPortfolio))
	}
	row(w, "TOTAL", "", "", c.app.money(r.TotalCostBasis), c.app.money(r.TotalValue), c.app.money(r.TotalUnrealized), "")
}

// propertyCmd prints property financials.
type propertyCmd struct {
	app *App
	id  string
}

func (*propertyCmd) Name() string     { return "property" }
func (*propertyCmd) Synopsis() string { return "rental property metrics" }
func (*propertyCmd) Usage() string {
	return `ledger property <financials|amortization|summary> [-id <property id>]

  financials    income, expenses, NOI, cap rate, cash-on-cash, DSCR and rules of thumb
  amortization  month-by-month schedule of the original loan
  summary       every property ranked by cap rate
`
}

func (c *propertyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Property id")
}

func (c *propertyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.app.usage("property: expected financials, amortization or summary")
	}
	svc, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	ps := svc.PropertiesService

	switch f.Arg(0) {
	case "financials":
		fin, err := ps.GetPropertyFinancials(ctx, c.app.user, c.id)
		if err != nil {
			return c.app.fail(err)
		}
		err = c.app.emit(fin, func(w *tabwriter.Writer) { c.financials(w, fin) })
		if err != nil {
			return c.app.fail(err)
		}

	case "amortization":
		schedule, err := ps.GetAmortizationSchedule(ctx, c.app.user, c.id)
		if err != nil {
			return c.app.fail(err)
		}
		err = c.app.emit(schedule, func(w *tabwriter.Writer) {
			row(w, "MONTH", "PAYMENT", "PRINCIPAL", "INTEREST", "BALANCE")
			for _, e := range schedule {
				row(w, strconv.Itoa(e.Month), c.app.money(e.Payment), c.app.money(e.Principal),
					c.app.money(e.Interest), c.app.money(e.Balance))
			}
		})
		if err != nil {
			return c.app.fail(err)
		}

	case "summary":
		s, err := ps.GetPortfolioSummary(ctx, c.app.user)
		if err != nil {
			return c.app.fail(err)
		}
		err = c.app.emit(s, func(w *tabwriter.Writer) {
			row(w, "PROPERTY", "VALUE", "EQUITY", "NOI", "CASH FLOW", "CAP", "COC", "DSCR")
			for _, e := range s.Properties {
				row(w, e.Name, c.app.money(e.CurrentValue), c.app.money(e.Equity), c.app.money(e.AnnualNOI),
					c.app.money(e.AnnualCashFlow), formatPct(e.CapRate), formatPct(e.CashOnCashReturn), e.DebtServiceCoverage.String())
			}
			row(w, "TOTAL", c.app.money(s.TotalValue), c.app.money(s.TotalEquity), c.app.money(s.TotalAnnualNOI),
				c.app.money(s.TotalAnnualCashFlow), formatPct(s.WeightedCapRate), "", "")
			row(w, "Portfolio LTV", formatPct(s.PortfolioLTV))
		})
		if err != nil {
			return c.app.fail(err)
		}

	default:
		return c.app.usage("property: unknown view %q", f.Arg(0))
	}
	return subcommands.ExitSuccess
}

func (c *propertyCmd) financials(w *tabwriter.Writer, f *properties.Financials) {
	m := f.Metrics
	pass := func(ok bool) string {
		if ok {
			return "pass"
		}
		return "fail"
	}
	row(w, "Property", f.Property.Name)
	row(w, "Gross monthly income", c.app.money(m.GrossMonthlyIncome))
	row(w, "Vacancy loss", c.app.money(m.VacancyLoss))
	row(w, "Monthly expenses", c.app.money(m.MonthlyExpenses))
	row(w, "Monthly NOI", c.app.money(m.MonthlyNOI))
	row(w, "Mortgage payment", c.app.money(m.MonthlyMortgagePayment))
	row(w, "Monthly cash flow", c.app.money(m.MonthlyCashFlow))
	row(w, "Cap rate", formatPct(m.CapRate))
	row(w, "Cash-on-cash", formatPct(m.CashOnCashReturn))
	row(w, "Loan-to-value", formatPct(m.LoanToValue))
	row(w, "DSCR", m.DebtServiceCoverage.String())
	row(w, "1% rule", c.app.money(m.Rules.OnePercent.Value), pass(m.Rules.OnePercent.Pass))
	row(w, "2% rule", c.app.money(m.Rules.TwoPercent.Value), pass(m.Rules.TwoPercent.Pass))
	row(w, "1.35 rule", c.app.money(m.Rules.OnePointThreeFive.Value), pass(m.Rules.OnePointThreeFive.Pass))
}

// statusCmd checks the store and prints the effective settings.
type statusCmd struct {
	app        *App
	checkpoint bool
}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "check the ledger database and show settings" }
func (*statusCmd) Usage() string    { return "ledger status [-checkpoint]\n" }

func (c *statusCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.checkpoint, "checkpoint", false, "Truncate the write-ahead log after the check")
}

func (c *statusCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	if err := svc.LedgerDB.HealthCheck(ctx); err != nil {
		return c.app.fail(err)
	}
	if c.checkpoint {
		if err := svc.LedgerDB.WALCheckpoint("TRUNCATE"); err != nil {
			return c.app.fail(err)
		}
	}

	status := struct {
		Path           string `json:"path"`
		Profile        string `json:"profile"`
		OversellPolicy string `json:"oversell_policy"`
		Currency       string `json:"currency"`
		Healthy        bool   `json:"healthy"`
	}{
		Path:           svc.LedgerDB.Path(),
		Profile:        string(svc.LedgerDB.Profile()),
		OversellPolicy: svc.LedgerService.Policy().String(),
		Currency:       c.app.cfg.ReportingCurrency,
		Healthy:        true,
	}
	if err := c.app.emit(status, func(w *tabwriter.Writer) {
		row(w, "Database", status.Path)
		row(w, "Profile", status.Profile)
		row(w, "Oversell policy", status.OversellPolicy)
		row(w, "Currency", status.Currency)
		row(w, "Integrity", "ok")
	}); err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}
