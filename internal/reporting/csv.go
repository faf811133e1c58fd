package reporting

import (
	"fmt"
	"strings"

	"equity-backtest-lab/internal/domain"
)

// RenderTradesCSV renders a trade ledger slice as a CSV string.
func RenderTradesCSV(trades []*domain.Trade) string {
	var sb strings.Builder

	// Header
	sb.WriteString("trade_id,run_id,fold_index,symbol,side,class,engine_tag,")
	sb.WriteString("entry_fill,exit_fill,lots,quantity,notional,fill_ratio,")
	sb.WriteString("gross_pnl,fees,net_pnl,exit_reason,outcome\n")

	// Rows
	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%s,%s,%s,%.4f,%.4f,%d,%d,%.2f,%.6f,%.2f,%.2f,%.2f,%s,%s\n",
			t.TradeID,
			t.RunID,
			t.FoldIndex,
			t.Symbol,
			t.Side,
			t.Class,
			t.EngineTag,
			t.EntryFill,
			t.ExitFill,
			t.Lots,
			t.Quantity,
			t.Notional,
			t.FillRatio,
			t.GrossPnL,
			t.Fees,
			t.NetPnL,
			t.ExitReason,
			t.Outcome,
		))
	}

	return sb.String()
}

// RenderFoldsCSV renders per-fold results as a CSV string. Skipped folds
// appear with their reason and zeroed statistics.
func RenderFoldsCSV(folds []domain.FoldResult) string {
	var sb strings.Builder

	sb.WriteString("fold_index,test_start,test_end,skipped,skip_reason,")
	sb.WriteString("trades,wins,win_rate,avg_return,sharpe,max_drawdown,profit_factor,var_95,cvar_95\n")

	for _, f := range folds {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%t,%s,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f\n",
			f.FoldIndex,
			f.TestStart.Format("2006-01-02"),
			f.TestEnd.Format("2006-01-02"),
			f.Skipped,
			f.SkipReason,
			f.Summary.Trades,
			f.Summary.Wins,
			f.Summary.WinRate,
			f.Summary.AvgReturn,
			f.Summary.Sharpe,
			f.Summary.MaxDrawdown,
			f.Summary.ProfitFactor,
			f.Summary.VaR95,
			f.Summary.CVaR95,
		))
	}

	return sb.String()
}
