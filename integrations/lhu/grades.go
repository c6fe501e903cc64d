package lhu

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
)

const missingScore = "Chưa có"

// Course is one row of the grade sheet.
type Course struct {
	MaMonHoc      string `json:"ma_mon_hoc"`
	TenMonHoc     string `json:"ten_mon_hoc"`
	HeSo          string `json:"he_so"`
	DiemThanhPhan string `json:"diem_thanh_phan"`
	DiemTrungBinh string `json:"diem_trung_binh"`
}

// Transcript groups courses by semester name.
type Transcript struct {
	Semesters     map[string][]Course `json:"semesters"`
	TinChiTichLuy float64             `json:"tin_chi_tich_luy"`
}

// Grades scrapes the grade sheet page with the portal session cookie.
func (c *Client) Grades(ctx context.Context, token string) (*Transcript, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	resp, err := c.request(ctx, "").
		SetHeader("Cookie", "awt="+token).
		SetHeader("User-Agent", userAgent).
		SetDoNotParseResponse(true).
		Get(c.cfg.MarkURL)
	if err != nil {
		err = c.networkError("grades", err)
		c.record(err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		err = &pkgError.UpstreamError{
			Service: serviceName,
			Code:    pkgError.CodeAPIError,
			Message: fmt.Sprintf("grade sheet: %s", resp.Status()),
			Status:  resp.StatusCode(),
		}
		c.record(err)
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		err = &pkgError.UpstreamError{
			Service: serviceName,
			Code:    pkgError.CodeAPIError,
			Message: "unreadable grade sheet",
			Err:     err,
		}
		c.record(err)
		return nil, err
	}
	c.record(nil)
	return parseTranscript(doc), nil
}

func parseTranscript(doc *goquery.Document) *Transcript {
	out := &Transcript{Semesters: make(map[string][]Course)}

	doc.Find("#tblBangDiem tbody").Slice(1, goquery.ToEnd).Each(func(_ int, body *goquery.Selection) {
		rows := body.Find("tr")
		semester := strings.TrimSpace(rows.First().Find("td.RowGroup").Text())
		semester = strings.Replace(semester, "Học kỳ ", "", 1)

		courses := make([]Course, 0)
		rows.Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() != 6 {
				return
			}
			cell := func(i int) string {
				return strings.TrimSpace(cells.Eq(i).Text())
			}
			course := Course{
				MaMonHoc:      cell(0),
				TenMonHoc:     cell(1),
				HeSo:          cell(2),
				DiemThanhPhan: orMissing(cell(3)),
				DiemTrungBinh: orMissing(cell(4)),
			}
			courses = append(courses, course)
			if credits, err := strconv.ParseFloat(course.HeSo, 64); err == nil {
				out.TinChiTichLuy += credits
			}
		})
		out.Semesters[semester] = courses
	})
	return out
}

func orMissing(s string) string {
	if s == "" {
		return missingScore
	}
	return s
}
