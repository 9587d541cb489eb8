package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

type Report struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	WordCount   int      `json:"word_count"`
	VideoIDs    []string `json:"video_ids"`
	VideoTitles []string `json:"video_titles"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

type CreateReportRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	VideoIDs    []string `json:"video_ids"`
	VideoTitles []string `json:"video_titles"`
}

type ReportPage struct {
	Reports  []Report `json:"reports"`
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	Pages    int      `json:"pages"`
}

func (c *Client) CreateReport(ctx context.Context, req CreateReportRequest) (*Report, error) {
	var out Report
	if err := c.doJSON(ctx, http.MethodPost, "/reports", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListReports(ctx context.Context, page, pageSize int) (*ReportPage, error) {
	var out ReportPage
	path := fmt.Sprintf("/reports?page=%d&page_size=%d", page, pageSize)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetReport(ctx context.Context, id int64) (*Report, error) {
	var out Report
	if err := c.doJSON(ctx, http.MethodGet, "/reports/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteReport(ctx context.Context, id int64) (*Ack, error) {
	return c.ack(ctx, http.MethodDelete, "/reports/"+strconv.FormatInt(id, 10), nil)
}
