package commands

import (
	"fmt"

	"github.com/rongwang/budget-server/internal/models"
	"github.com/spf13/cobra"
)

var (
	categoryName string
	categoryType string
)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage default categories",
}

var categoryCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a default category",
	Long: `Create a default category shared by every user.

Custom categories with the same name are merged into the new default and
their transactions move along with them.

Examples:
  budgetctl category create --name food --type expense
  budgetctl category create -n salary -t income`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDB, err := openService()
		if err != nil {
			return err
		}
		defer closeDB()

		operator := models.Principal{UserID: "budgetctl", Role: models.RoleAdmin}
		category, err := svc.CreateDefaultCategory(cmd.Context(), operator, categoryName, models.TransactionType(categoryType))
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created default category %q (%s, %s)\n", category.Name, category.TransactionType, category.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoryCmd)
	categoryCmd.AddCommand(categoryCreateCmd)

	categoryCreateCmd.Flags().StringVarP(&categoryName, "name", "n", "", "Category name")
	categoryCreateCmd.Flags().StringVarP(&categoryType, "type", "t", "", "Transaction type (income or expense)")
	_ = categoryCreateCmd.MarkFlagRequired("name")
	_ = categoryCreateCmd.MarkFlagRequired("type")
}
