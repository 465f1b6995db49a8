package queries

type PayoutQueries struct {
	Status string `query:"status"`
	Limit  int    `query:"limit" validate:"uint"`
	Page   int    `query:"page" validate:"uint"`
}

type CommissionQueries struct {
	Limit int `query:"limit" validate:"uint"`
	Page  int `query:"page" validate:"uint"`
}
