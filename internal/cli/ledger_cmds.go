package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/modules/ledger"
	"github.com/aristath/holdings/internal/utils"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

func parseDecimal(field, s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		v := domain.NewValidationError()
		v.Add(field, fmt.Sprintf("invalid number %q", s))
		return decimal.Zero, v
	}
	return d, nil
}

func parseDateFlag(field, s string) (time.Time, error) {
	t, err := domain.ParseDate(s)
	if err != nil {
		v := domain.NewValidationError()
		v.Add(field, err.Error())
		return time.Time{}, v
	}
	return t, nil
}

func parseRange(from, to string) (domain.DateRange, error) {
	var (
		rng domain.DateRange
		err error
	)
	if rng.From, err = parseDateFlag("from", from); err != nil {
		return rng, err
	}
	if rng.To, err = parseDateFlag("to", to); err != nil {
		return rng, err
	}
	return rng, nil
}

func parseTypes(s string) []ledger.TransactionType {
	var types []ledger.TransactionType
	for _, v := range utils.ParseCSV(s) {
		types = append(types, ledger.TransactionType(strings.ToUpper(v)))
	}
	return types
}

func (a *App) printPosition(p *ledger.Position) error {
	return a.emit(p, func(w *tabwriter.Writer) {
		row(w, "Position", p.ID)
		row(w, "Symbol", p.Symbol)
		row(w, "Category", string(p.Category))
		row(w, "Shares", p.Shares.String())
		row(w, "Cost basis", a.money(p.CostBasisTotal))
		row(w, "Cost per share", a.money(p.CostBasisPerShare))
		row(w, "Price", a.money(p.Price()))
		row(w, "Value", a.money(p.CurrentValue))
		row(w, "Unrealized", a.money(p.UnrealizedGain))
		row(w, "Realized", a.money(p.RealizedGain))
	})
}

func (a *App) printTransactions(txs []ledger.Transaction) error {
	return a.emit(txs, func(w *tabwriter.Writer) {
		row(w, "DATE", "TYPE", "SHARES", "PRICE", "AMOUNT", "FEES", "REALIZED", "ID")
		for _, t := range txs {
			realized := ""
			if t.RealizedGainLoss.Valid {
				realized = a.money(t.RealizedGainLoss.Decimal)
			}
			shares, price := "", ""
			if t.Type.IsTrade() {
				shares, price = t.Shares.String(), a.money(t.PricePerShare)
			}
			row(w, formatDate(t.Date), string(t.Type), shares, price,
				a.money(t.TotalAmount), a.money(t.Fees), realized, t.ID)
		}
	})
}

// accountOpenCmd opens an account.
type accountOpenCmd struct {
	app         *App
	name        string
	accountType string
	tax         string
}

func (*accountOpenCmd) Name() string     { return "account-open" }
func (*accountOpenCmd) Synopsis() string { return "open a new account" }
func (*accountOpenCmd) Usage() string {
	return `ledger account-open -name <name> [-type BROKERAGE] [-tax TAXABLE]

  Opens an account for the current user and prints it.
`
}

func (c *accountOpenCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Account name")
	f.StringVar(&c.accountType, "type", "BROKERAGE", "Account type: BROKERAGE, RETIREMENT, EDUCATION, HSA, OTHER")
	f.StringVar(&c.tax, "tax", "TAXABLE", "Tax treatment: TAXABLE, TAX_DEFERRED, TAX_EXEMPT")
}

func (c *accountOpenCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	acct, err := svc.LedgerService.OpenAccount(ctx, c.app.user, ledger.AccountInput{
		Name:         c.name,
		AccountType:  ledger.AccountType(strings.ToUpper(c.accountType)),
		TaxTreatment: ledger.TaxTreatment(strings.ToUpper(c.tax)),
	})
	if err != nil {
		return c.app.fail(err)
	}
	if err := c.app.emit(acct, func(w *tabwriter.Writer) {
		row(w, acct.ID, acct.Name, string(acct.AccountType), string(acct.TaxTreatment))
	}); err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}

// accountsCmd lists accounts.
type accountsCmd struct{ app *App }

func (*accountsCmd) Name() string             { return "accounts" }
func (*accountsCmd) Synopsis() string         { return "list accounts" }
func (*accountsCmd) Usage() string            { return "ledger accounts\n" }
func (*accountsCmd) SetFlags(_ *flag.FlagSet) {}

func (c *accountsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	accounts, err := svc.LedgerService.ListAccounts(ctx, c.app.user)
	if err != nil {
		return c.app.fail(err)
	}
	if err := c.app.emit(accounts, func(w *tabwriter.Writer) {
		row(w, "ID", "NAME", "TYPE", "TAX")
		for _, a := range accounts {
			row(w, a.ID, a.Name, string(a.AccountType), string(a.TaxTreatment))
		}
	}); err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}

// positionOpenCmd opens an empty position.
type positionOpenCmd struct {
	app      *App
	account  string
	symbol   string
	name     string
	category string
	price    string
}

func (*positionOpenCmd) Name() string     { return "position-open" }
func (*positionOpenCmd) Synopsis() string { return "open an empty position in an account" }
func (*positionOpenCmd) Usage() string {
	return `ledger position-open -account <id> -symbol <symbol> [-category ETF] [-price <price>]

  Opens a position with no shares. Its figures follow the transactions recorded against it.
`
}

func (c *positionOpenCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account id")
	f.StringVar(&c.symbol, "symbol", "", "Ticker symbol")
	f.StringVar(&c.name, "name", "", "Display name")
	f.StringVar(&c.category, "category", "OTHER", "Category: STOCK, ETF, MUTUAL_FUND, BOND, CRYPTO, REAL_ESTATE, CASH, OTHER")
	f.StringVar(&c.price, "price", "0", "Current price")
}

func (c *positionOpenCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	price, err := parseDecimal("price", c.price)
	if err != nil {
		return c.app.fail(err)
	}
	svc, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	p, err := svc.LedgerService.OpenPosition(ctx, c.app.user, ledger.PositionInput{
		AccountID:    c.account,
		Symbol:       c.symbol,
		Name:         c.name,
		Category:     ledger.Category(strings.ToUpper(c.category)),
		CurrentPrice: price,
	})
	if err != nil {
		return c.app.fail(err)
	}
	if err := c.app.printPosition(p); err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}

// positionsCmd lists positions.
type positionsCmd struct {
	app      *App
	accounts string
}

func (*positionsCmd) Name() string     { return "positions" }
func (*positionsCmd) Synopsis() string { return "list positions" }
func (*positionsCmd) Usage() string    { return "ledger positions [-accounts id1,id2]\n" }

func (c *positionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.accounts, "accounts", "", "Comma-separated account ids (default: all)")
}

func (c *positionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	positions, err := svc.LedgerService.ListPositions(ctx, c.app.user, utils.ParseCSV(c.accounts))
	if err != nil {
		return c.app.fail(err)
	}
	if err := c.app.emit(positions, func(w *tabwriter.Writer) {
		row(w, "SYMBOL", "SHARES", "COST", "VALUE", "UNREALIZED", "REALIZED", "ID")
		for _, p := range positions {
			row(w, p.Symbol, p.Shares.String(), c.app.money(p.CostBasisTotal), c.app.money(p.CurrentValue),
				c.app.money(p.UnrealizedGain), c.app.money(p.RealizedGain), p.ID)
		}
	}); err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}

// setPriceCmd sets a position's current price.
type setPriceCmd struct {
	app      *App
	position string
	price    string
}

func (*setPriceCmd) Name() string     { return "set-price" }
func (*setPriceCmd) Synopsis() string { return "set the current price of a position" }
func (*setPriceCmd) Usage() string    { return "ledger set-price -position <id> -price <price>\n" }

func (c *setPriceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.position, "position", "", "Position id")
	f.StringVar(&c.price, "price", "", "New price")
}

func (c *setPriceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.price == "" {
		return c.app.usage("set-price: -price is required")
	}
	price, err := parseDecimal("price", c.price)
	if err != nil {
		return c.app.fail(err)
	}
	svc, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	p, err := svc.LedgerService.SetPrice(ctx, c.app.user, c.position, price)
	if err != nil {
		return c.app.fail(err)
	}
	if err := c.app.printPosition(p); err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}

// recomputeCmd rebuilds a position from its transactions.
type recomputeCmd struct {
	app      *App
	position string
}

func (*recomputeCmd) Name() string     { return "recompute" }
func (*recomputeCmd) Synopsis() string { return "rebuild a position from its BUY/SELL history" }
func (*recomputeCmd) Usage() string    { return "ledger recompute -position <id>\n" }

func (c *recomputeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.position, "position", "", "Position id")
}

func (c *recomputeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	if _, err := svc.LedgerService.GetPosition(ctx, c.app.user, c.position); err != nil {
		return c.app.fail(err)
	}
	p, err := svc.LedgerService.Recompute(ctx, c.position)
	if err != nil {
		return c.app.fail(err)
	}
	if err := c.app.printPosition(p); err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}

// twrCmd prints a position's time-weighted return.
type twrCmd struct {
	app      *App
	position string
	from, to string
}

func (*twrCmd) Name() string     { return "twr" }
func (*twrCmd) Synopsis() string { return "time-weighted return of a position" }
func (*twrCmd) Usage() string {
	return `ledger twr -position <id> [-from YYYY-MM-DD] [-to YYYY-MM-DD]

  Chains the sub-period returns between cash flows, closing with the current value.
`
}

func (c *twrCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.position, "position", "", "Position id")
	f.StringVar(&c.from, "from", "", "First day of the range (inclusive)")
	f.StringVar(&c.to, "to", "", "Last day of the range (inclusive)")
}

func (c *twrCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rng, err := parseRange(c.from, c.to)
	if err != nil {
		return c.app.fail(err)
	}
	svc, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	twr, err := svc.LedgerService.GetTimeWeightedReturn(ctx, c.app.user, c.position, rng)
	if err != nil {
		return c.app.fail(err)
	}
	out := struct {
		PositionID string          `json:"position_id"`
		TWR        decimal.Decimal `json:"time_weighted_return"`
	}{c.position, twr.Round(4)}
	if err := c.app.emit(out, func(w *tabwriter.Writer) {
		row(w, "Time-weighted return", formatPct(twr))
	}); err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}

// recordCmd appends a transaction.
type recordCmd struct {
	app        *App
	account    string
	position   string
	txType     string
	date       string
	shares     string
	price      string
	amount     string
	fees       string
	notes      string
	reconciled bool
}

func (*recordCmd) Name() string     { return "record" }
func (*recordCmd) Synopsis() string { return "record a transaction" }
func (*recordCmd) Usage() string {
	return `ledger record -account <id> -type <TYPE> [-position <id>] [-date YYYY-MM-DD]
              [-shares N -price P] [-amount A] [-fees F] [-notes text]

  BUY and SELL need -position, -shares and -price; their amount is derived.
  Other types need -amount.
`
}

func (c *recordCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account id")
	f.StringVar(&c.position, "position", "", "Position id")
	f.StringVar(&c.txType, "type", "", "BUY, SELL, CONTRIBUTION, WITHDRAWAL, DIVIDEND, INCOME, DISTRIBUTION, EXPENSE")
	f.StringVar(&c.date, "date", time.Now().UTC().Format(domain.DateLayout), "Transaction date")
	f.StringVar(&c.shares, "shares", "", "Share quantity (BUY/SELL)")
	f.StringVar(&c.price, "price", "", "Price per share (BUY/SELL)")
	f.StringVar(&c.amount, "amount", "", "Total amount (other types)")
	f.StringVar(&c.fees, "fees", "", "Fees")
	f.StringVar(&c.notes, "notes", "", "Free-form notes")
	f.BoolVar(&c.reconciled, "reconciled", false, "Mark as reconciled with a statement")
}

func (c *recordCmd) input() (ledger.TransactionInput, error) {
	in := ledger.TransactionInput{
		AccountID:  c.account,
		PositionID: c.position,
		Type:       ledger.TransactionType(strings.ToUpper(c.txType)),
		Notes:      c.notes,
		Reconciled: c.reconciled,
	}
	var err error
	if in.Date, err = parseDateFlag("date", c.date); err != nil {
		return in, err
	}
	if in.Shares, err = parseDecimal("shares", c.shares); err != nil {
		return in, err
	}
	if in.PricePerShare, err = parseDecimal("price", c.price); err != nil {
		return in, err
	}
	if in.TotalAmount, err = parseDecimal("amount", c.amount); err != nil {
		return in, err
	}
	if in.Fees, err = parseDecimal("fees", c.fees); err != nil {
		return in, err
	}
	return in, nil
}

func (c *recordCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	in, err := c.input()
	if err != nil {
		return c.app.fail(err)
	}
	svc, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	t, err := svc.LedgerService.RecordTransaction(ctx, c.app.user, in)
	if err != nil {
		return c.app.fail(err)
	}
	if err := c.app.printTransactions([]ledger.Transaction{*t}); err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}

// editCmd changes the flags given on the command line and leaves the rest.
type editCmd struct {
	recordCmd
	id string
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "edit a transaction" }
func (*editCmd) Usage() string {
	return `ledger edit -id <transaction id> [-type T] [-position P] [-date D] [-shares N] [-price P] [-amount A] [-fees F] [-notes N] [-reconciled]

  Only the flags given are changed. Affected positions are recomputed.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	c.recordCmd.SetFlags(f)
	f.StringVar(&c.id, "id", "", "Transaction id")
}

func (c *editCmd) patch(f *flag.FlagSet) (ledger.TransactionPatch, error) {
	var (
		patch ledger.TransactionPatch
		err   error
	)
	f.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "position":
			patch.PositionID = &c.position
		case "type":
			typ := ledger.TransactionType(strings.ToUpper(c.txType))
			patch.Type = &typ
		case "date":
			var d time.Time
			if d, err = parseDateFlag("date", c.date); err == nil {
				patch.Date = &d
			}
		case "shares":
			var d decimal.Decimal
			if d, err = parseDecimal("shares", c.shares); err == nil {
				patch.Shares = &d
			}
		case "price":
			var d decimal.Decimal
			if d, err = parseDecimal("price", c.price); err == nil {
				patch.PricePerShare = &d
			}
		case "amount":
			var d decimal.Decimal
			if d, err = parseDecimal("amount", c.amount); err == nil {
				patch.TotalAmount = &d
			}
		case "fees":
			var d decimal.Decimal
			if d, err = parseDecimal("fees", c.fees); err == nil {
				patch.Fees = &d
			}
		case "notes":
			patch.Notes = &c.notes
		case "reconciled":
			patch.Reconciled = &c.reconciled
		}
	})
	return patch, err
}

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		return c.app.usage("edit: -id is required")
	}
	patch, err := c.patch(f)
	if err != nil {
		return c.app.fail(err)
	}
	svc, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	t, err := svc.LedgerService.EditTransaction(ctx, c.app.user, c.id, patch)
	if err != nil {
		return c.app.fail(err)
	}
	if err := c.app.printTransactions([]ledger.Transaction{*t}); err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}

// deleteCmd removes a transaction.
type deleteCmd struct {
	app *App
	id  string
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete a transaction" }
func (*deleteCmd) Usage() string    { return "ledger delete -id <transaction id>\n" }

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Transaction id")
}

func (c *deleteCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	if err := svc.LedgerService.DeleteTransaction(ctx, c.app.user, c.id); err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.errs, "Deleted transaction %s\n", c.id)
	return subcommands.ExitSuccess
}

// transactionsCmd lists the transaction log.
type transactionsCmd struct {
	app      *App
	accounts string
	position string
	types    string
	from, to string
}

func (*transactionsCmd) Name() string     { return "transactions" }
func (*transactionsCmd) Synopsis() string { return "list transactions" }
func (*transactionsCmd) Usage() string {
	return "ledger transactions [-accounts a,b] [-position id] [-types BUY,SELL] [-from D] [-to D]\n"
}

func (c *transactionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.accounts, "accounts", "", "Comma-separated account ids (default: all)")
	f.StringVar(&c.position, "position", "", "Position id")
	f.StringVar(&c.types, "types", "", "Comma-separated transaction types")
	f.StringVar(&c.from, "from", "", "First day (inclusive)")
	f.StringVar(&c.to, "to", "", "Last day (inclusive)")
}

func (c *transactionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rng, err := parseRange(c.from, c.to)
	if err != nil {
		return c.app.fail(err)
	}
	svc, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	txs, err := svc.LedgerService.ListTransactions(ctx, c.app.user, ledger.TransactionFilter{
		AccountIDs: utils.ParseCSV(c.accounts),
		PositionID: c.position,
		Types:      parseTypes(c.types),
		Range:      rng,
	})
	if err != nil {
		return c.app.fail(err)
	}
	if err := c.app.printTransactions(txs); err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}
