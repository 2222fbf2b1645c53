package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/salonsched/libs/auth"
	"github.com/md-rashed-zaman/salonsched/libs/grpcx"
	"github.com/md-rashed-zaman/salonsched/libs/kafkax"
)

var appointmentTopics = []string{
	"scheduling.appointment.booked.v1",
	"scheduling.appointment.rescheduled.v1",
	"scheduling.appointment.updated.v1",
	"scheduling.appointment.cancelled.v1",
	"scheduling.appointment.status_changed.v1",
	"scheduling.appointment.deleted.v1",
}

func (a *app) healthCmd() *cobra.Command {
	var addr, service string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the gRPC health service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.v.GetString("grpc_addr")
			}
			if service == "" {
				service = a.v.GetString("grpc_service")
			}
			timeout := a.v.GetDuration("timeout")
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			conn, err := grpcx.Dial(ctx, addr, grpcx.DialOptions{Timeout: timeout})
			if err != nil {
				return fmt.Errorf("dial %s: %w", addr, err)
			}
			defer conn.Close()
			status, err := grpcx.CheckHealth(ctx, conn, service)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", service, status)
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "gRPC address (default from grpc_addr)")
	cmd.Flags().StringVar(&service, "service", "", "health service name (default from grpc_service)")
	return cmd
}

func (a *app) eventsCmd() *cobra.Command {
	var group string
	var topics []string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail appointment events from Kafka",
		RunE: func(cmd *cobra.Command, _ []string) error {
			brokers := kafkax.SplitBrokers(a.v.GetString("kafka_brokers"))
			if len(brokers) == 0 {
				return errors.New("kafka_brokers is empty")
			}
			if len(topics) == 0 {
				topics = appointmentTopics
			}
			reader := kafka.NewReader(kafka.ReaderConfig{
				Brokers:     brokers,
				GroupID:     group,
				GroupTopics: topics,
				MinBytes:    1,
				MaxBytes:    10e6,
				StartOffset: kafka.LastOffset,
			})
			defer reader.Close()

			out := cmd.OutOrStdout()
			for {
				msg, err := reader.ReadMessage(cmd.Context())
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return err
				}
				meta := kafkax.ExtractEventMeta(msg)
				traceParent := kafkax.HeaderValue(msg.Headers, "traceparent")
				fmt.Fprintf(out, "%s %s id=%s key=%s trace=%s\n%s\n",
					msg.Time.UTC().Format(time.RFC3339), meta.EventType, meta.EventID, msg.Key, traceParent, msg.Value)
			}
		},
	}
	cmd.Flags().StringVar(&group, "group", "schedctl-tail", "consumer group id")
	cmd.Flags().StringSliceVar(&topics, "topic", nil, "topics to follow (default: all appointment events)")
	return cmd
}

func (a *app) tokenCmd() *cobra.Command {
	var role, staffID, customerID, subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an HS256 token for local testing (needs jwt_secret)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := a.v.GetString("jwt_secret")
			if secret == "" {
				return errors.New("jwt_secret is not configured (SCHEDCTL_JWT_SECRET)")
			}
			claims := auth.Claims{Role: role, StaffID: staffID, CustomerID: customerID}
			claims.Subject = subject
			tok, err := auth.SignHS256(claims, secret, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&role, "role", auth.RoleAdmin, "admin, staff or customer")
	cmd.Flags().StringVar(&staffID, "staff-id", "", "staff id claim")
	cmd.Flags().StringVar(&customerID, "customer-id", "", "customer id claim")
	cmd.Flags().StringVar(&subject, "subject", "schedctl", "sub claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
