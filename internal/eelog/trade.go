package eelog

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/betbot/wfmtrader/internal/domain"
	"github.com/betbot/wfmtrader/internal/events"
	"github.com/betbot/wfmtrader/internal/ports"
)

const (
	tradeStartMarker   = "Are you sure you want to accept this trade? You are offering"
	tradeReceiveMarker = "and will receive from "
	tradeDialogEnd     = ", leftItem=/Menu/Confirm_Item_Ok"
	tradeSuccess       = "The trade was successful!"
	tradeFailed        = "The trade failed."
	tradeCancelled     = "The trade was cancelled"

	// a confirm dialog never spans more lines than this
	maxDialogLines = 64
)

var (
	receiveRe  = regexp.MustCompile(`and will receive from (.+?) the following:`)
	quantityRe = regexp.MustCompile(`^(.*?)\s+x\s*(\d+)$`)
	rankRe     = regexp.MustCompile(`^(.*?)\s*\(RANK (\d+)\)$`)
	urlNameRe  = regexp.MustCompile(`[^a-z0-9_]+`)
	// "12.345 Script [Info]: ..." starts a new log entry
	logEntryRe = regexp.MustCompile(`^\d+\.\d+ \w+ \[\w+\]:`)
)

// TradeHandler receives every successful trade.
type TradeHandler interface {
	HandleTrade(ctx context.Context, t domain.Trade) error
}

type tradeState int

const (
	tradeIdle tradeState = iota
	tradeCollecting
	tradeAwaitingResult
)

// TradeDetector follows the trade confirmation dialog and its outcome.
type TradeDetector struct {
	handler TradeHandler
	events  ports.EventPublisher
	now     func() time.Time

	state     tradeState
	startLine int64
	body      []string
}

func NewTradeDetector(handler TradeHandler, pub ports.EventPublisher) *TradeDetector {
	return &TradeDetector{handler: handler, events: pub, now: time.Now}
}

func (d *TradeDetector) Name() string { return "trade" }

func (d *TradeDetector) Detect(ctx context.Context, index int64, line string) (bool, error) {
	if i := strings.Index(line, tradeStartMarker); i >= 0 {
		d.state = tradeCollecting
		d.startLine = index
		d.body = d.body[:0]
		if rest := strings.TrimSpace(line[i+len(tradeStartMarker):]); rest != "" {
			d.body = append(d.body, rest)
		}
		return true, nil
	}

	switch d.state {
	case tradeCollecting:
		if i := strings.Index(line, tradeDialogEnd); i >= 0 {
			if rest := strings.TrimSpace(line[:i]); rest != "" {
				d.body = append(d.body, rest)
			}
			d.state = tradeAwaitingResult
			return true, nil
		}
		if logEntryRe.MatchString(line) || len(d.body) >= maxDialogLines {
			// the dialog ended without its terminator; let other detectors see the line
			log.Warnf("trade dialog from line %d abandoned after %d lines", d.startLine, len(d.body))
			d.reset()
			return false, nil
		}
		d.body = append(d.body, strings.TrimSpace(line))
		return true, nil

	case tradeAwaitingResult:
		switch {
		case strings.Contains(line, tradeSuccess):
			t := parseTrade(d.body)
			t.LineIndex = d.startLine
			t.Time = d.now()
			d.reset()
			log.Infof("trade with %s: %s (offered %d, received %d)", t.Player, t.Classification, len(t.Offered), len(t.Received))
			if d.events != nil {
				d.events.Publish(events.KindTrade, events.TradeEvent{Trade: t})
			}
			if d.handler != nil {
				return true, d.handler.HandleTrade(ctx, t)
			}
			return true, nil
		case strings.Contains(line, tradeFailed), strings.Contains(line, tradeCancelled):
			d.reset()
			return true, nil
		}
	}
	return false, nil
}

func (d *TradeDetector) reset() {
	d.state = tradeIdle
	d.body = d.body[:0]
	d.startLine = 0
}

// parseTrade reads the dialog body: offered lines, the "and will receive from
// <player> the following:" separator, then received lines.
func parseTrade(body []string) domain.Trade {
	var t domain.Trade
	receiving := false
	for _, line := range body {
		if line == "" {
			continue
		}
		if strings.Contains(line, tradeReceiveMarker) {
			if m := receiveRe.FindStringSubmatch(line); m != nil {
				t.Player = strings.TrimSpace(m[1])
			}
			receiving = true
			continue
		}
		item, plat := parseTradeLine(line)
		switch {
		case plat > 0 && receiving:
			t.PlatinumGot += plat
		case plat > 0:
			t.PlatinumPaid += plat
		case receiving:
			t.Received = append(t.Received, item)
		default:
			t.Offered = append(t.Offered, item)
		}
	}
	t.Classification = t.Classify()
	return t
}

// parseTradeLine parses "Name", "Name x 3" or "Name (RANK 5)". Platinum lines
// return the amount instead of an item.
func parseTradeLine(line string) (domain.TradeItem, int64) {
	name := strings.TrimSpace(strings.TrimSuffix(line, ","))
	qty := int64(1)
	if m := quantityRe.FindStringSubmatch(name); m != nil {
		if n, err := strconv.ParseInt(m[2], 10, 64); err == nil {
			name, qty = strings.TrimSpace(m[1]), n
		}
	}
	if strings.EqualFold(name, "platinum") {
		return domain.TradeItem{}, qty
	}
	item := domain.TradeItem{Name: name, Quantity: qty}
	if m := rankRe.FindStringSubmatch(name); m != nil {
		if r, err := strconv.ParseInt(m[2], 10, 64); err == nil {
			item.Name = strings.TrimSpace(m[1])
			item.Rank = &r
		}
	}
	return item, 0
}

// URLName converts a display name ("Mesa Prime Set") to the marketplace
// url_name ("mesa_prime_set").
func URLName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "&", "and")
	s = urlNameRe.ReplaceAllString(s, "")
	return s
}
