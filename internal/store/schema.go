package store

import (
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	questionsTable = "daily_questions"
	claimsTable    = "delivery_claims"
)

var textType = map[string]string{
	dialect.Postgres: "text",
	dialect.SQLite:   "text",
}

var (
	// DailyQuestionsColumns holds the columns for the "daily_questions" table.
	DailyQuestionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 128},
		{Name: "question_date", Type: field.TypeString, Size: 10},
		{Name: "zh", Type: field.TypeString, SchemaType: textType},
		{Name: "reference_en", Type: field.TypeString, SchemaType: textType},
		{Name: "difficulty", Type: field.TypeInt},
		{Name: "tags", Type: field.TypeJSON},
		{Name: "hints", Type: field.TypeJSON},
		{Name: "review_note", Type: field.TypeString, SchemaType: textType, Nullable: true},
		{Name: "raw", Type: field.TypeJSON},
		{Name: "model", Type: field.TypeString, Size: 128},
		{Name: "prompt_hash", Type: field.TypeString, Size: 64},
		{Name: "created_at", Type: field.TypeTime},
	}
	// DailyQuestionsTable holds the schema information for the "daily_questions" table.
	DailyQuestionsTable = &schema.Table{
		Name:       questionsTable,
		Columns:    DailyQuestionsColumns,
		PrimaryKey: []*schema.Column{DailyQuestionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "dailyquestion_question_date_zh",
				Unique:  true,
				Columns: []*schema.Column{DailyQuestionsColumns[1], DailyQuestionsColumns[2]},
			},
			{
				Name:    "dailyquestion_question_date_created_at",
				Unique:  false,
				Columns: []*schema.Column{DailyQuestionsColumns[1], DailyQuestionsColumns[11]},
			},
		},
	}

	// DeliveryClaimsColumns holds the columns for the "delivery_claims" table.
	DeliveryClaimsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "question_id", Type: field.TypeString, Size: 128},
		{Name: "device_id", Type: field.TypeString, Size: 255},
		{Name: "delivered_date", Type: field.TypeString, Size: 10},
		{Name: "delivered_at", Type: field.TypeTime},
	}
	// DeliveryClaimsTable holds the schema information for the "delivery_claims" table.
	DeliveryClaimsTable = &schema.Table{
		Name:       claimsTable,
		Columns:    DeliveryClaimsColumns,
		PrimaryKey: []*schema.Column{DeliveryClaimsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "delivery_claims_daily_questions_claims",
				Columns:    []*schema.Column{DeliveryClaimsColumns[1]},
				RefColumns: []*schema.Column{DailyQuestionsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "deliveryclaim_question_id_device_id",
				Unique:  true,
				Columns: []*schema.Column{DeliveryClaimsColumns[1], DeliveryClaimsColumns[2]},
			},
			{
				Name:    "deliveryclaim_device_id_delivered_date",
				Unique:  false,
				Columns: []*schema.Column{DeliveryClaimsColumns[2], DeliveryClaimsColumns[3]},
			},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		DailyQuestionsTable,
		DeliveryClaimsTable,
	}
)

func init() {
	DeliveryClaimsTable.ForeignKeys[0].RefTable = DailyQuestionsTable
}
