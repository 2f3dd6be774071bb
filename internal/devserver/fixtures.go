package devserver

import (
	"fmt"
	"time"

	"github.com/daeyeon-lee/cinemoa/internal/listing"
)

type fixture struct {
	item      listing.Item
	category  int64
	leaf      int64
	region    string
	venue     string
	closed    bool
	createdBy int64
	funders   []int64
	createdAt time.Time
	baseLikes int
}

// Category ids used by the fixtures. Leaves belong to the top level named
// in their comment.
const (
	CategoryMovie   int64 = 1
	CategoryConcert int64 = 2

	LeafDrama     int64 = 11 // movie
	LeafAnimation int64 = 12 // movie
	LeafClassic   int64 = 13 // movie
	LeafKPop      int64 = 21 // concert
	LeafOrchestra int64 = 22 // concert
)

var (
	fixtureRegions = []string{"서울", "경기", "부산", "대전"}
	fixtureVenues  = []string{"IMAX", "4DX", "SCREENX", "DOLBY"}
	fixtureTitles  = []string{
		"헤어질 결심", "기생충", "올드보이", "아가씨", "살인의 추억",
		"너의 이름은", "센과 치히로의 행방불명", "이웃집 토토로",
		"시네마 천국", "로마의 휴일", "BTS 월드투어 상영회", "뉴진스 라이브",
		"베를린 필 실황", "빈 필 신년음악회", "괴물", "박하사탕",
		"하울의 움직이는 성", "붉은 돼지", "카사블랑카", "사운드 오브 뮤직",
	}
)

// DefaultEpoch anchors fixture timestamps so listings are reproducible.
var DefaultEpoch = time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)

func buildFixtures(epoch time.Time) []*fixture {
	leaves := []int64{LeafDrama, LeafDrama, LeafClassic, LeafDrama, LeafDrama,
		LeafAnimation, LeafAnimation, LeafAnimation, LeafClassic, LeafClassic,
		LeafKPop, LeafKPop, LeafOrchestra, LeafOrchestra, LeafDrama, LeafDrama,
		LeafAnimation, LeafAnimation, LeafClassic, LeafClassic}

	out := make([]*fixture, 0, len(fixtureTitles))
	for i, title := range fixtureTitles {
		id := int64(i + 1)
		leaf := leaves[i]
		top := CategoryMovie
		if leaf >= LeafKPop {
			top = CategoryConcert
		}
		ends := epoch.Add(time.Duration(i%7+1) * 24 * time.Hour)
		f := &fixture{
			category:  top,
			leaf:      leaf,
			region:    fixtureRegions[i%len(fixtureRegions)],
			venue:     fixtureVenues[(i/2)%len(fixtureVenues)],
			closed:    i%9 == 8,
			createdBy: int64(i%3 + 1),
			funders:   []int64{int64(i%4 + 1)},
			createdAt: epoch.Add(-time.Duration(i) * time.Hour),
			baseLikes: (i * 7) % 23,
		}
		if i%4 == 3 {
			f.item = listing.Item{
				Kind:  listing.KindVote,
				ID:    id,
				Title: title,
				Vote:  &listing.VoteDetail{SupportCount: 10 + i*3, EndsAt: ends},
			}
		} else {
			capacity := 40 + (i%5)*20
			joined := (i * 11) % capacity
			f.item = listing.Item{
				Kind:  listing.KindFunding,
				ID:    id,
				Title: title,
				Funding: &listing.FundingDetail{
					CinemaName:      fmt.Sprintf("%s %s관", f.region, f.venue),
					ScreeningDate:   ends.Add(14 * 24 * time.Hour),
					Price:           12000 + (i%4)*3000,
					FundingRate:     float64(joined) / float64(capacity) * 100,
					Participants:    joined,
					MaxParticipants: capacity,
					EndsAt:          ends,
				},
			}
		}
		out = append(out, f)
	}
	return out
}

func (f *fixture) endsAt() time.Time {
	switch {
	case f.item.Funding != nil:
		return f.item.Funding.EndsAt
	case f.item.Vote != nil:
		return f.item.Vote.EndsAt
	}
	return time.Time{}
}

func (f *fixture) fundingRate() float64 {
	if f.item.Funding == nil {
		return 0
	}
	return f.item.Funding.FundingRate
}
