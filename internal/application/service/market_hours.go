package service

import (
	"time"

	"stockwatch/internal/domain/model"
)

// MarketClock answers whether the US equity market is currently in its
// regular session (Mon-Fri 09:30-16:00 Eastern). Holidays are not modeled;
// the worst case is a "market open" status on a quiet day.
type MarketClock struct {
	loc *time.Location
	now func() time.Time
}

func NewMarketClock() *MarketClock {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &MarketClock{loc: loc, now: time.Now}
}

func (c *MarketClock) Status() model.MarketStatus {
	now := c.now().In(c.loc)

	open := false
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
	default:
		minutes := now.Hour()*60 + now.Minute()
		open = minutes >= 9*60+30 && minutes < 16*60
	}

	status := "closed"
	if open {
		status = "open"
	}

	return model.MarketStatus{
		IsOpen:      open,
		Status:      status,
		LastUpdated: now.UTC(),
	}
}
