package scraper

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/quaestus/internal/models"
)

// Selector strategies are tried in order until one yields content. The
// source site reshuffles its markup occasionally, so every field carries
// at least one fallback.
var (
	companyNameSelectors  = []string{"h1.margin-0", "h1.company-name", "h1"}
	ratioListSelectors    = []string{"#top-ratios li", ".company-ratios li", "ul.ratios li"}
	quarterTableSelectors = []string{"#quarters table", "section.quarters table", "table.quarterly-results"}
	strengthsSelectors    = []string{".pros h3", "#analysis .pros h3", ".strengths-heading"}
	weaknessesSelectors   = []string{".cons h3", "#analysis .cons h3", ".weaknesses-heading"}

	cardSelectors       = []string{".result-card", ".earnings-card", "li.result-item", "div[class*='EarningUpdateCard']"}
	cardSymbolSelectors = []string{".symbol", ".ticker", ".stock-code", "h3 small", "h3 span"}
)

// quarterLabelPattern finds a quarter label anywhere inside a result card.
var quarterLabelPattern = regexp.MustCompile(`(?i)\bQ[1-4]\s+FY\d{2}-\d{2}\b`)

// ResultCard is one company entry on an earnings listing page.
type ResultCard struct {
	Symbol      string
	CompanyName string
	DetailURL   string
	Quarter     string
}

// ExtractResultCards parses a rendered earnings listing page into its
// result cards. Cards without a company link are dropped.
func ExtractResultCards(html string) ([]ResultCard, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	var cards []ResultCard
	for _, selector := range cardSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			link := sel.Find("h3 a").First()
			name := collapseWhitespace(strings.TrimSpace(link.Text()))
			href, _ := link.Attr("href")
			if name == "" || href == "" {
				return
			}

			symbol := ""
			for _, symbolSelector := range cardSymbolSelectors {
				text := strings.TrimSpace(sel.Find(symbolSelector).First().Text())
				if text != "" {
					// strip trailing price change like "ACME (1.56%)"
					symbol = strings.TrimSpace(strings.SplitN(text, "(", 2)[0])
					break
				}
			}

			cards = append(cards, ResultCard{
				Symbol:      symbol,
				CompanyName: name,
				DetailURL:   href,
				Quarter:     collapseWhitespace(quarterLabelPattern.FindString(sel.Text())),
			})
		})
		if len(cards) > 0 {
			break
		}
	}

	if len(cards) == 0 {
		return nil, fmt.Errorf("no result cards found on listing page")
	}
	return cards, nil
}

// ExtractSnapshot parses a rendered company page into a snapshot of the
// most recent quarter's metrics.
func ExtractSnapshot(html string) (string, models.FinancialSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", models.FinancialSnapshot{}, fmt.Errorf("failed to parse page: %w", err)
	}

	snapshot := models.FinancialSnapshot{
		ScrapedAt: time.Now(),
	}

	companyName := firstText(doc, companyNameSelectors)

	ratios := extractRatios(doc)
	snapshot.CMP = lookupMetric(ratios, "current price", "cmp")
	snapshot.MarketCap = lookupMetric(ratios, "market cap")

	table := firstSelection(doc, quarterTableSelectors)
	if table == nil {
		return companyName, snapshot, fmt.Errorf("quarterly results table not found")
	}

	quarter, column := latestQuarterColumn(table)
	if quarter == "" {
		return companyName, snapshot, fmt.Errorf("no quarter columns in results table")
	}
	snapshot.Quarter = quarter

	rows := extractRows(table, column)
	snapshot.Revenue = lookupMetric(rows, "revenue", "sales")
	snapshot.RevenueGrowth = lookupMetric(rows, "revenue growth", "sales growth", "yoy sales")
	snapshot.NetProfit = lookupMetric(rows, "net profit", "profit after tax")
	snapshot.ProfitGrowth = lookupMetric(rows, "profit growth", "yoy profit")
	snapshot.EPS = lookupMetric(rows, "eps")
	snapshot.ResultDate = lookupMetric(rows, "result date", "announced")
	snapshot.ResultType = lookupMetric(rows, "result type")

	snapshot.Strengths = firstText(doc, strengthsSelectors)
	snapshot.Weaknesses = firstText(doc, weaknessesSelectors)

	return companyName, snapshot, nil
}

// firstText returns the trimmed text of the first selector that matches.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text != "" {
			return collapseWhitespace(text)
		}
	}
	return ""
}

// firstSelection returns the first non-empty selection among selectors.
func firstSelection(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

// extractRatios reads the name/value ratio list into a label-keyed map.
func extractRatios(doc *goquery.Document) map[string]string {
	ratios := make(map[string]string)
	for _, selector := range ratioListSelectors {
		doc.Find(selector).Each(func(_ int, li *goquery.Selection) {
			name := strings.TrimSpace(li.Find(".name").First().Text())
			value := strings.TrimSpace(li.Find(".value, .number").First().Text())
			if name == "" {
				// Fall back to "Label: value" text nodes
				parts := strings.SplitN(li.Text(), ":", 2)
				if len(parts) == 2 {
					name = strings.TrimSpace(parts[0])
					value = strings.TrimSpace(parts[1])
				}
			}
			if name != "" && value != "" {
				ratios[normalizeLabel(name)] = collapseWhitespace(value)
			}
		})
		if len(ratios) > 0 {
			break
		}
	}
	return ratios
}

// latestQuarterColumn returns the label and column index of the most recent
// quarter in the results table header. Columns run oldest to newest, so the
// last non-empty header cell wins.
func latestQuarterColumn(table *goquery.Selection) (string, int) {
	quarter := ""
	column := -1
	table.Find("thead tr, tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		if i == 0 {
			return // row-label column
		}
		text := collapseWhitespace(strings.TrimSpace(th.Text()))
		if text != "" {
			quarter = text
			column = i
		}
	})
	return quarter, column
}

// extractRows reads the metric rows of the results table, taking the value
// from the given column.
func extractRows(table *goquery.Selection, column int) map[string]string {
	rows := make(map[string]string)
	table.Find("tbody tr, tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() <= column {
			return
		}
		label := strings.TrimSpace(cells.Eq(0).Text())
		value := strings.TrimSpace(cells.Eq(column).Text())
		if label != "" && value != "" {
			rows[normalizeLabel(label)] = collapseWhitespace(value)
		}
	})
	return rows
}

// lookupMetric finds the entry whose label best matches one of the given
// fragments. Exact label matches win; otherwise the shortest containing
// label wins, which keeps "revenue" from landing on "revenue growth".
func lookupMetric(values map[string]string, fragments ...string) string {
	for _, fragment := range fragments {
		if value, ok := values[fragment]; ok {
			return value
		}
		bestLabel := ""
		for label := range values {
			if !strings.Contains(label, fragment) {
				continue
			}
			if bestLabel == "" || len(label) < len(bestLabel) {
				bestLabel = label
			}
		}
		if bestLabel != "" {
			return values[bestLabel]
		}
	}
	return ""
}

func normalizeLabel(label string) string {
	return strings.ToLower(collapseWhitespace(strings.TrimSpace(label)))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
