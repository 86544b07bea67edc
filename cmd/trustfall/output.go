package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/talgya/trustfall/internal/agents"
)

func renderTable(w io.Writer, header []string, rows [][]string) {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetBorder(false)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.AppendBulk(rows)
	t.Render()
}

// amount formats token and yield figures with thousands separators.
func amount(v float64) string {
	return humanize.FormatFloat("#,###.####", v)
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

func percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func playerRows(players []*agents.Player) [][]string {
	rows := make([][]string, 0, len(players))
	for _, p := range players {
		rows = append(rows, []string{
			p.Name,
			p.Strategy.Label(),
			strconv.Itoa(p.Reputation),
			p.Faction().String(),
			count(p.Score),
			count(p.TotalMatches),
			amount(p.CurrentPrincipal),
			amount(p.CumulativeYield),
			percent(p.TrustRate()),
		})
	}
	return rows
}

var playerHeader = []string{"Name", "Strategy", "Rep", "Faction", "Score", "Matches", "Principal", "Yield", "Trust"}

func printPlayers(w io.Writer, players []*agents.Player) {
	if len(players) == 0 {
		fmt.Fprintln(w, "No players yet. Use 'trustfall players add' or 'trustfall players bulk'.")
		return
	}
	renderTable(w, playerHeader, playerRows(players))
}
