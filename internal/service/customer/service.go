package customer

import (
	"unicode"

	"github.com/qualitrack/qc-api/internal/model"
	"github.com/qualitrack/qc-api/internal/repository"
	"github.com/qualitrack/qc-api/internal/service/entity"
)

// Service specializes the generic engine for customers: the generic rules
// run unchanged, plus the customer code must start with a letter.
type Service struct {
	*entity.Service[model.Customer]
}

// NewService composes the generic entity service with the customer rules.
func NewService(repo repository.EntityRepository[model.Customer], opts ...entity.Option[model.Customer]) *Service {
	opts = append(opts, entity.WithValidation[model.Customer](validateCustomer))
	return &Service{
		Service: entity.NewService(repo, model.CustomerConfig(), opts...),
	}
}

func validateCustomer(input model.EntityInput, op entity.Operation, errs []string) []string {
	if input.Code != "" && !unicode.IsLetter(rune(input.Code[0])) {
		errs = append(errs, "customer code must start with a letter")
	}
	return errs
}
