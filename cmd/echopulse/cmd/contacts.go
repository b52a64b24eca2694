package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/oshokin/echopulse/internal/domain/contact"
	"github.com/oshokin/echopulse/internal/service/client"
	"github.com/oshokin/echopulse/internal/service/common"
)

func newContactsCommand() *cobra.Command {
	contactsCmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage emergency contacts.",
		Long:  "List, add, update and remove emergency contacts. Contacts are notified primary first, then in the order they were added.",
	}

	contactsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List contacts in notification order.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, func(ctx context.Context, c *common.Client, out io.Writer) error {
					contacts, err := c.ListContacts(ctx)
					if err != nil {
						return err
					}

					return client.PrintContacts(out, contacts)
				})
			},
		},
		newContactsAddCommand(),
		newContactsUpdateCommand(),
		&cobra.Command{
			Use:   "remove <contact-id>",
			Short: "Remove a contact.",
			Long:  "Remove a contact. The primary contact can only be removed when it is the last one; make another contact primary first.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, func(ctx context.Context, c *common.Client, out io.Writer) error {
					if err := c.RemoveContact(ctx, args[0]); err != nil {
						return err
					}

					_, err := fmt.Fprintf(out, "Contact %s removed.\n", args[0])

					return err
				})
			},
		},
		&cobra.Command{
			Use:   "primary <contact-id>",
			Short: "Make a contact the primary contact.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, func(ctx context.Context, c *common.Client, out io.Writer) error {
					if err := c.SetPrimaryContact(ctx, args[0]); err != nil {
						return err
					}

					contacts, err := c.ListContacts(ctx)
					if err != nil {
						return err
					}

					return client.PrintContacts(out, contacts)
				})
			},
		},
	)

	return contactsCmd
}

func newContactsAddCommand() *cobra.Command {
	var (
		relationship string
		primary      bool
	)

	addCmd := &cobra.Command{
		Use:   "add <name> <phone>",
		Short: "Add a contact.",
		Long:  "Add a contact. The first contact is always primary; --primary moves primary status to the new contact.",
		Args:  cobra.ExactArgs(2), //nolint:mnd // Name and phone.
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, c *common.Client, out io.Writer) error {
				added, err := c.AddContact(ctx, args[0], args[1], relationship, primary)
				if err != nil {
					return err
				}

				return client.PrintContact(out, added)
			})
		},
	}

	addCmd.Flags().StringVarP(&relationship, "relationship", "r", "", "relationship to the monitored person")
	addCmd.Flags().BoolVarP(&primary, "primary", "p", false, "make the new contact primary")

	return addCmd
}

func newContactsUpdateCommand() *cobra.Command {
	var (
		name, phone, relationship string
		primary                   bool
	)

	updateCmd := &cobra.Command{
		Use:   "update <contact-id>",
		Short: "Update a contact.",
		Long:  "Update the given fields of a contact. Only flags that are set are changed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			upd := contact.Update{MakePrimary: primary}

			if cmd.Flags().Changed("name") {
				upd.Name = &name
			}

			if cmd.Flags().Changed("phone") {
				upd.Phone = &phone
			}

			if cmd.Flags().Changed("relationship") {
				upd.Relationship = &relationship
			}

			return run(cmd, func(ctx context.Context, c *common.Client, out io.Writer) error {
				updated, err := c.UpdateContact(ctx, args[0], upd)
				if err != nil {
					return err
				}

				return client.PrintContact(out, updated)
			})
		},
	}

	updateCmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	updateCmd.Flags().StringVarP(&phone, "phone", "p", "", "new phone number")
	updateCmd.Flags().StringVarP(&relationship, "relationship", "r", "", "new relationship")
	updateCmd.Flags().BoolVar(&primary, "primary", false, "make the contact primary")

	return updateCmd
}
