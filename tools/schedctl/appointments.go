package main

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (a *app) slotsCmd() *cobra.Command {
	var staff, service, date, extras string
	var granularity int
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List bookable start times for a staff member and service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			q.Set("staff_id", staff)
			q.Set("service_id", service)
			q.Set("date", date)
			if extras != "" {
				q.Set("extras", extras)
			}
			if granularity > 0 {
				q.Set("granularity", strconv.Itoa(granularity))
			}
			raw, err := a.client.do(cmd.Context(), http.MethodGet, "/api/v1/slots", q, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
	cmd.Flags().StringVar(&staff, "staff", "", "staff id")
	cmd.Flags().StringVar(&service, "service", "", "service id")
	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&extras, "extras", "", "comma-separated extra ids")
	cmd.Flags().IntVar(&granularity, "granularity", 0, "slot step in minutes")
	_ = cmd.MarkFlagRequired("staff")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func (a *app) conflictsCmd() *cobra.Command {
	var staff, service, date, at, extras, exclude string
	var minutes int
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Show appointments a candidate booking would overlap",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := a.client.do(cmd.Context(), http.MethodPost, "/api/v1/conflicts", nil, map[string]any{
				"appointment_id":     exclude,
				"staff_id":           staff,
				"service_id":         service,
				"selected_extra_ids": splitList(extras),
				"date":               date,
				"time":               at,
				"duration_minutes":   minutes,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
	cmd.Flags().StringVar(&staff, "staff", "", "staff id")
	cmd.Flags().StringVar(&service, "service", "", "service id (sizes the candidate when --minutes is unset)")
	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&at, "time", "", "start time (HH:MM)")
	cmd.Flags().StringVar(&extras, "extras", "", "comma-separated extra ids")
	cmd.Flags().StringVar(&exclude, "exclude", "", "appointment id to ignore")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "candidate length in minutes")
	_ = cmd.MarkFlagRequired("staff")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("time")
	return cmd
}

func (a *app) bookCmd() *cobra.Command {
	var staff, service, date, at, extras, name, email, phone, notes, origin string
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book a new appointment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := a.client.do(cmd.Context(), http.MethodPost, "/api/v1/appointments", nil, map[string]any{
				"staff_id":           staff,
				"service_id":         service,
				"selected_extra_ids": splitList(extras),
				"date":               date,
				"time":               at,
				"customer_name":      name,
				"customer_email":     email,
				"customer_phone":     phone,
				"notes":              notes,
				"origin":             origin,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
	cmd.Flags().StringVar(&staff, "staff", "", "staff id")
	cmd.Flags().StringVar(&service, "service", "", "service id")
	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&at, "time", "", "start time (HH:MM)")
	cmd.Flags().StringVar(&extras, "extras", "", "comma-separated extra ids")
	cmd.Flags().StringVar(&name, "customer", "", "customer name")
	cmd.Flags().StringVar(&email, "email", "", "customer email")
	cmd.Flags().StringVar(&phone, "phone", "", "customer phone")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	cmd.Flags().StringVar(&origin, "origin", "admin_form", "booking_form, admin_form or customer_portal")
	for _, f := range []string{"staff", "service", "date", "time", "customer"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func (a *app) moveCmd() *cobra.Command {
	var staff, date, at, origin string
	cmd := &cobra.Command{
		Use:   "move <appointment-id>",
		Short: "Move an appointment to another slot or staff member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := a.client.do(cmd.Context(), http.MethodPost, "/api/v1/appointments/move", nil, map[string]any{
				"appointment_id": args[0],
				"staff_id":       staff,
				"date":           date,
				"time":           at,
				"origin":         origin,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
	cmd.Flags().StringVar(&staff, "staff", "", "new staff id (default: unchanged)")
	cmd.Flags().StringVar(&date, "date", "", "new date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&at, "time", "", "new start time (HH:MM)")
	cmd.Flags().StringVar(&origin, "origin", "calendar_drop", "calendar_drop, admin_form or customer_portal")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("time")
	return cmd
}

func (a *app) cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <appointment-id>",
		Short: "Cancel an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := a.client.do(cmd.Context(), http.MethodPost, "/api/v1/appointments/cancel", nil, map[string]any{
				"appointment_id": args[0],
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <appointment-id> <status>",
		Short: "Set an appointment's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := a.client.do(cmd.Context(), http.MethodPost, "/api/v1/appointments/status", nil, map[string]any{
				"appointment_id": args[0],
				"status":         args[1],
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <appointment-id>",
		Short: "Delete an appointment record (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := a.client.do(cmd.Context(), http.MethodDelete, "/api/v1/appointments", url.Values{"id": {args[0]}}, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
}

func (a *app) boardCmd() *cobra.Command {
	var staff, date string
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Print one day of appointments with conflict badges",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{"date": {date}}
			if staff != "" {
				q.Set("staff_id", staff)
			}
			raw, err := a.client.do(cmd.Context(), http.MethodGet, "/api/v1/appointments", q, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
	cmd.Flags().StringVar(&staff, "staff", "", "staff id (default: everyone)")
	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
