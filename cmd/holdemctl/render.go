package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/weedbox/holdemtable"
)

func renderHand(tableID string, r *holdemtable.HandResult) {
	var b strings.Builder
	b.WriteString(pterm.Sprintfln("Board: %s", strings.Join(r.Board, " ")))
	for i, p := range r.Pots {
		b.WriteString(pterm.Sprintfln("Pot %d: %d %v", i, p.Amount, p.Eligible))
	}
	for _, seatID := range r.RevealOrder {
		b.WriteString(pterm.Sprintfln("Seat %d shows %s %s", seatID, strings.Join(r.Revealed[seatID], " "), r.Hands[seatID]))
	}
	for _, a := range r.Awards {
		b.WriteString(pterm.Sprintfln("%s wins %d from pot %d", a.UserID, a.Amount, a.Pot))
	}

	pbox := pterm.DefaultBox.WithLeftPadding(4).WithRightPadding(4).WithTopPadding(1).WithBottomPadding(1)
	pbox.WithTitle(pterm.LightYellow(fmt.Sprintf("|%s HAND #%d|", shortID(tableID), r.HandNo))).WithTitleTopCenter().Println(b.String())
}

// renderTable prints the wallets and the audit of one table and returns the
// audit failure, if any.
func renderTable(st *simulatedTable, escrowed int64) error {
	pterm.DefaultSection.Printfln("Table %s", st.id)

	players := append([]string{}, st.players...)
	sort.Strings(players)

	data := pterm.TableData{{"Player", "Wallet Before", "Wallet After", "Net"}}
	for _, p := range players {
		net := st.after[p] - st.before[p]
		netText := pterm.LightGreen(fmt.Sprintf("%+d", net))
		if net < 0 {
			netText = pterm.LightRed(fmt.Sprintf("%+d", net))
		}
		data = append(data, []string{p, fmt.Sprint(st.before[p]), fmt.Sprint(st.after[p]), netText})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}

	results := st.results()
	var volume, biggest int64
	for _, r := range results {
		for _, p := range r.Pots {
			volume += p.Amount
			if p.Amount > biggest {
				biggest = p.Amount
			}
		}
	}

	auditErr := tableAudit(st, escrowed)
	status := pterm.LightGreen("conserved")
	if auditErr != nil {
		status = pterm.LightRed(auditErr.Error())
	}

	summary := pterm.Sprintfln("Hands: %d", len(results)) +
		pterm.Sprintfln("Chips through pots: %d", volume) +
		pterm.Sprintfln("Largest pot: %d", biggest) +
		pterm.Sprintfln("Escrow after close: %d", escrowed) +
		pterm.Sprintfln("Audit: %s", status)

	pbox := pterm.DefaultBox.WithLeftPadding(4).WithRightPadding(4).WithTopPadding(1).WithBottomPadding(1)
	pbox.WithTitle(pterm.LightCyan("|SUMMARY|")).WithTitleTopCenter().Println(summary)

	return auditErr
}
