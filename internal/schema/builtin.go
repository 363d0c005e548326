package schema

import "github.com/JonMunkholm/sheetimport/internal/core"

func text(key, label string, alternates ...string) core.Field {
	return core.Field{Key: key, Label: label, Type: core.FieldText, Alternates: alternates}
}

func numeric(key, label string) core.Field {
	return core.Field{Key: key, Label: label, Type: core.FieldNumeric,
		Validations: []core.Validation{{Rule: core.RuleType, Message: "Must be a number"}}}
}

func date(key, label string) core.Field {
	return core.Field{Key: key, Label: label, Type: core.FieldDate,
		Validations: []core.Validation{{Rule: core.RuleType, Message: "Must be a date"}}}
}

// identifier marks f as a required, unique primary key candidate.
func identifier(f core.Field) core.Field {
	f.IsPrimaryKey = true
	f.Validations = append(f.Validations,
		core.Validation{Rule: core.RuleRequired},
		core.Validation{Rule: core.RuleUnique},
	)
	return f
}

// Builtin returns the schemas available without a schema file: the
// Salesforce, NetSuite and Anrok exports the finance team loads.
func Builtin() []core.Schema {
	return []core.Schema{
		{
			Key:   "sfdc_customers",
			Label: "Salesforce customers",
			Fields: []core.Field{
				identifier(text("account_id_casesafe", "Account ID (case safe)", "Account ID")),
				text("account_name", "Account name", "Account"),
				date("last_activity", "Last activity"),
				{Key: "type", Label: "Type", Type: core.FieldEnum, Validations: []core.Validation{
					{Rule: core.RuleEnum, Values: []string{"Customer", "Prospect", "Partner", "Other"}, Level: core.LevelWarning},
				}},
			},
		},
		{
			Key:   "sfdc_price_book",
			Label: "Salesforce price book",
			Fields: []core.Field{
				text("price_book_name", "Price book name"),
				numeric("list_price", "List price"),
				text("product_name", "Product name"),
				text("product_code", "Product code"),
				identifier(text("product_id_casesafe", "Product ID (case safe)", "Product ID")),
			},
		},
		{
			Key:   "ns_customers",
			Label: "NetSuite customers",
			Fields: []core.Field{
				text("salesforce_id_io", "Salesforce ID"),
				identifier(text("internal_id", "Internal ID")),
				text("name", "Name"),
				text("company_name", "Company name", "Company"),
				numeric("balance", "Balance"),
				numeric("unbilled_orders", "Unbilled orders"),
				numeric("overdue_balance", "Overdue balance"),
				numeric("days_overdue", "Days overdue"),
			},
		},
		{
			Key:   "anrok_transactions",
			Label: "Anrok transactions",
			Fields: []core.Field{
				identifier(text("transaction_id", "Transaction ID")),
				text("customer_id", "Customer ID"),
				text("customer_name", "Customer name"),
				date("invoice_date", "Invoice date"),
				date("tax_date", "Tax date"),
				text("transaction_currency", "Transaction currency", "Currency"),
				numeric("sales_amount", "Sales amount"),
				numeric("tax_amount", "Tax amount"),
				numeric("invoice_amount", "Invoice amount"),
				{Key: "void", Label: "Void", Type: core.FieldBool, Validations: []core.Validation{{Rule: core.RuleType}}},
				text("customer_country_code", "Customer country code", "Country code"),
			},
		},
	}
}
