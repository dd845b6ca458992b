package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cloudfinch-harshad/rampart/api"
	"github.com/cloudfinch-harshad/rampart/client"
	"github.com/cloudfinch-harshad/rampart/config"
	"github.com/cloudfinch-harshad/rampart/database"
	"github.com/cloudfinch-harshad/rampart/render"
	"github.com/cloudfinch-harshad/rampart/table"
	"github.com/pkg/errors"
	"github.com/recoilme/pudge"
	"github.com/spf13/cobra"
)

type vendorListOptions struct {
	fy       string
	company  string
	search   string
	statuses []string
	deadline string
	page     int
	pageSize int
	sort     string
	desc     bool
	remote   bool
}

func (o vendorListOptions) query() api.TableQuery {
	q := api.TableQuery{
		Search:    o.search,
		Filters:   map[string][]string{},
		Page:      o.page,
		PageSize:  o.pageSize,
		SortField: o.sort,
	}
	if len(o.statuses) > 0 {
		q.Filters[api.FilterStatus] = o.statuses
	}
	if o.deadline != "" {
		q.Filters[api.FilterDeadline] = []string{o.deadline}
	}
	if o.sort != "" {
		q.SortDirection = table.Ascending
		if o.desc {
			q.SortDirection = table.Descending
		}
	}
	return q
}

func newVendorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vendors",
		Short: "Inspect vendors",
	}
	var o vendorListOptions
	list := &cobra.Command{
		Use:         "list",
		Short:       "Print a page of the vendor table",
		Annotations: map[string]string{annotationOutput: "table"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if o.fy == "" {
				o.fy = cfg.General.FiscalYear
			}
			if o.pageSize < 1 {
				o.pageSize = cfg.General.DefaultPageSize
			}
			if o.remote {
				if o.deadline != "" {
					return errors.New("--deadline is only available for the local table")
				}
				return listRemoteVendors(cmd.Context(), cmd.OutOrStdout(), cfg, o)
			}
			return listLocalVendors(cmd.OutOrStdout(), cfg, o)
		},
	}
	list.Flags().StringVar(&o.fy, "fy", "", "fiscal year (defaults to general.fiscalyear)")
	list.Flags().StringVar(&o.company, "company", "", "company id (local only)")
	list.Flags().StringVarP(&o.search, "search", "s", "", "search term")
	list.Flags().StringSliceVar(&o.statuses, "status", nil, "completion status filter (repeatable)")
	list.Flags().StringVar(&o.deadline, "deadline", "", "deadline filter: overdue or upcoming (local only)")
	list.Flags().IntVarP(&o.page, "page", "p", 1, "page number")
	list.Flags().IntVar(&o.pageSize, "page-size", 0, "rows per page (defaults to general.defaultpagesize)")
	list.Flags().StringVar(&o.sort, "sort", "", "sort field, e.g. vendorName or deadlineDate")
	list.Flags().BoolVar(&o.desc, "desc", false, "sort descending")
	list.Flags().BoolVar(&o.remote, "remote", false, "query the api at client.baseurl instead of the database")
	cmd.AddCommand(list)
	return cmd
}

func listLocalVendors(w io.Writer, cfg config.MainConfig, o vendorListOptions) error {
	if err := openDatabase(cfg.Database); err != nil {
		return err
	}
	defer database.CloseDb()

	vendors, err := database.AllVendors(o.company, o.fy)
	if err != nil {
		return err
	}
	t := api.NewVendorTable(vendors, o.query(), time.Now(), cfg.General.PageSizeOptions)
	_, err = fmt.Fprint(w, render.Table(t.View(), "Vendors FY "+o.fy))
	return err
}

func listRemoteVendors(ctx context.Context, w io.Writer, cfg config.MainConfig, o vendorListOptions) error {
	c, closeStore, err := newClient(cfg.Client)
	if err != nil {
		return err
	}
	defer closeStore()

	q := o.query()
	if q.Page < 1 {
		q.Page = 1
	}
	req := client.FilterVendorsRequest{
		Fy:        o.fy,
		SearchKey: q.Search,
		PageStart: (q.Page - 1) * q.PageSize,
		PageSize:  q.PageSize,
		Statuses:  q.Filters[api.FilterStatus],
		SortField: q.SortField,
	}
	if q.SortDirection != table.Unsorted {
		req.SortDirection = q.SortDirection.String()
	}
	resp, err := c.FilterVendors(ctx, req)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return errors.Wrap(err, "run rampart login first")
		}
		return err
	}
	t := api.NewRemoteVendorTable(resp.Vendors, resp.Total, q, time.Now(), cfg.General.PageSizeOptions)
	_, err = fmt.Fprint(w, render.Table(t.View(), "Vendors FY "+o.fy))
	return err
}

// newClient returns an api client whose token lives in the pudge file at
// cfg.TokenStorePath.
func newClient(cfg config.ClientConfig) (*client.Client, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.TokenStorePath), 0o755); err != nil {
		return nil, nil, errors.Wrap(err, "token store directory")
	}
	store := client.PudgeTokenStore{File: cfg.TokenStorePath}
	c, err := client.New(cfg, store)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { pudge.Close(store.File) }, nil
}
