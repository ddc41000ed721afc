package main

import (
	"github.com/spf13/cobra"

	"avatarbook/internal/delivery"
	"avatarbook/internal/dto"
	"avatarbook/internal/fulfillment"
	"avatarbook/internal/infrastructure/avatarapi"
	"avatarbook/internal/order/repository"
)

type orderDetail struct {
	OrderNumber     string  `json:"orderNumber"`
	OrderType       string  `json:"orderType"`
	Status          string  `json:"status"`
	CustomerEmail   string  `json:"customerEmail"`
	DeliveryURL     *string `json:"deliveryUrl"`
	ErrorMessage    *string `json:"errorMessage"`
	PaymentIntentID *string `json:"paymentIntentId"`
	ChildStatus     string  `json:"childStatus,omitempty"`
	RetryCount      int     `json:"retryCount,omitempty"`
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [order-number]",
		Short: "Print an order and its fulfillment record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			order, err := repository.NewMySQLOrderRepository(e.db).FindByOrderNumber(ctx, args[0])
			if err != nil {
				return err
			}

			out := orderDetail{
				OrderNumber:     order.OrderNumber,
				OrderType:       string(order.OrderType),
				Status:          string(order.Status),
				CustomerEmail:   order.CustomerEmail,
				DeliveryURL:     order.DeliveryURL,
				ErrorMessage:    order.ErrorMessage,
				PaymentIntentID: order.PaymentIntentID,
			}

			if job, err := repository.NewMySQLVideoJobRepository(e.db).FindByOrderID(ctx, order.ID); err == nil {
				out.ChildStatus = string(job.Status)
				out.RetryCount = job.RetryCount
			} else if conv, err := repository.NewMySQLConversationRepository(e.db).FindByOrderID(ctx, order.ID); err == nil {
				out.ChildStatus = string(conv.Status)
			}

			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func resubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resubmit [order-number]",
		Short: "Re-run fulfillment for a failed or undispatched paid order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			notifier, closeNotifier := e.notifier()
			defer closeNotifier()

			dispatcher, _ := fulfillment.NewModule(
				repository.NewMySQLOrderRepository(e.db),
				repository.NewMySQLVideoJobRepository(e.db),
				repository.NewMySQLConversationRepository(e.db),
				avatarapi.NewClient(e.cfg.Provider),
				notifier,
				e.cfg,
				e.logger,
			)

			order, err := dispatcher.Resubmit(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), dto.ResubmitResponse{
				OrderNumber: order.OrderNumber,
				Status:      string(order.Status),
			})
		},
	}
}

func regenerateLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate-link [order-number]",
		Short: "Issue a new delivery link and invalidate the old one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			notifier, closeNotifier := e.notifier()
			defer closeNotifier()

			svc, _ := delivery.NewModule(repository.NewMySQLOrderRepository(e.db), notifier, e.cfg, e.logger)
			resp, err := svc.Regenerate(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}
