package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/daeyeon-lee/cinemoa/internal/listing"
)

// Envelope states.
const (
	StateOK    = "OK"
	StateFail  = "FAIL"
	StateError = "ERROR"
)

// Envelope wraps every Cinemoa API response.
type Envelope struct {
	State   string          `json:"state"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ServerError is a FAIL or ERROR envelope. The API reports these with HTTP
// 200 as often as with an error status.
type ServerError struct {
	State   string
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "no message"
	}
	if e.Code == "" {
		return fmt.Sprintf("server %s: %s", strings.ToLower(e.State), msg)
	}
	return fmt.Sprintf("server %s %s: %s", strings.ToLower(e.State), e.Code, msg)
}

// PageData mirrors the data field of a listing response.
type PageData struct {
	Content     []ItemData `json:"content"`
	NextCursor  string     `json:"nextCursor,omitempty"`
	HasNextPage bool       `json:"hasNextPage"`
}

// ItemData is the transport form of a listed funding or vote.
type ItemData struct {
	Type      string `json:"type"`
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	IsLiked   bool   `json:"isLiked"`
	LikeCount int    `json:"likeCount"`

	CinemaName      string  `json:"cinemaName,omitempty"`
	ScreeningDate   string  `json:"screeningDate,omitempty"`
	Price           int     `json:"price,omitempty"`
	FundingRate     float64 `json:"fundingRate,omitempty"`
	Participants    int     `json:"participants,omitempty"`
	MaxParticipants int     `json:"maxParticipants,omitempty"`
	SupportCount    int     `json:"supportCount,omitempty"`
	EndsAt          string  `json:"endsAt,omitempty"`
}

// Item converts the transport form into a listing item.
func (d ItemData) Item() (listing.Item, error) {
	item := listing.Item{
		Kind:      listing.Kind(strings.ToUpper(d.Type)),
		ID:        d.ID,
		Title:     d.Title,
		Liked:     d.IsLiked,
		LikeCount: d.LikeCount,
	}
	switch item.Kind {
	case listing.KindFunding:
		item.Funding = &listing.FundingDetail{
			CinemaName:      d.CinemaName,
			ScreeningDate:   parseTime(d.ScreeningDate),
			Price:           d.Price,
			FundingRate:     d.FundingRate,
			Participants:    d.Participants,
			MaxParticipants: d.MaxParticipants,
			EndsAt:          parseTime(d.EndsAt),
		}
	case listing.KindVote:
		item.Vote = &listing.VoteDetail{
			SupportCount: d.SupportCount,
			EndsAt:       parseTime(d.EndsAt),
		}
	default:
		return listing.Item{}, fmt.Errorf("item %d: unknown type %q", d.ID, d.Type)
	}
	return item, nil
}

// ItemDataFrom converts a listing item to its transport form.
func ItemDataFrom(item listing.Item) ItemData {
	d := ItemData{
		Type:      string(item.Kind),
		ID:        item.ID,
		Title:     item.Title,
		IsLiked:   item.Liked,
		LikeCount: item.LikeCount,
	}
	if f := item.Funding; f != nil {
		d.CinemaName = f.CinemaName
		d.ScreeningDate = formatTime(f.ScreeningDate)
		d.Price = f.Price
		d.FundingRate = f.FundingRate
		d.Participants = f.Participants
		d.MaxParticipants = f.MaxParticipants
		d.EndsAt = formatTime(f.EndsAt)
	}
	if v := item.Vote; v != nil {
		d.SupportCount = v.SupportCount
		d.EndsAt = formatTime(v.EndsAt)
	}
	return d
}

// Page converts the transport page. Items of an unknown type fail the
// whole page.
func (p PageData) Page(cursor string) (listing.Page, error) {
	page := listing.Page{
		Cursor:     cursor,
		Items:      make([]listing.Item, 0, len(p.Content)),
		NextCursor: p.NextCursor,
		HasNext:    p.HasNextPage && p.NextCursor != "",
	}
	for _, d := range p.Content {
		item, err := d.Item()
		if err != nil {
			return listing.Page{}, err
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

// LikeStatusData is the part of the item detail response the client reads.
type LikeStatusData struct {
	ID      int64 `json:"id"`
	IsLiked bool  `json:"isLiked"`
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
