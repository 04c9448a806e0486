package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/reception_core/internal/model"
)

type staffSource interface {
	ListActive(ctx context.Context, businessID int64) ([]*model.Staff, error)
	GetByName(ctx context.Context, businessID int64, name string) (*model.Staff, error)
	GetByID(ctx context.Context, id int64) (*model.Staff, error)
}

// StaffResolution — исход подбора сотрудника.
// Ровно одно из полей описывает результат: выбранный сотрудник,
// "такого сотрудника нет" или "на это время никто не свободен".
type StaffResolution struct {
	Staff    *model.Staff
	NotFound bool // звонящий назвал имя, которого нет — молча не подменяем
	NoneFree bool // свободных нет, нужно предлагать другое время
}

// StaffService подбирает сотрудника под запись.
type StaffService struct {
	staff  staffSource
	logger *zap.Logger
}

func NewStaffService(staff staffSource, logger *zap.Logger) *StaffService {
	return &StaffService{staff: staff, logger: logger}
}

// Resolve выбирает сотрудника для окна [start, end) по трём политикам,
// в порядке: явно названное имя, дефолтный сотрудник услуги (если свободен),
// первый свободный в порядке id. Для бизнеса без записи по сотрудникам
// не вызывается вовсе.
func (s *StaffService) Resolve(
	ctx context.Context,
	checker ConflictChecker,
	business *model.Business,
	svc *model.Service,
	requestedName string,
	start, end time.Time,
) (StaffResolution, error) {
	// Политика (а): явное имя. Не нашли — уточняем, а не подставляем другого.
	if requestedName != "" {
		st, err := s.staff.GetByName(ctx, business.ID, requestedName)
		if err != nil {
			return StaffResolution{}, fmt.Errorf("resolve staff by name: %w", err)
		}
		if st == nil {
			s.logger.Info("requested staff not found",
				zap.Int64("business_id", business.ID),
				zap.String("name", requestedName))
			return StaffResolution{NotFound: true}, nil
		}
		return StaffResolution{Staff: st}, nil
	}

	// Политика (б): дефолтный сотрудник услуги, если он свободен.
	if svc != nil && svc.DefaultStaffID != nil {
		st, err := s.staff.GetByID(ctx, *svc.DefaultStaffID)
		if err != nil {
			return StaffResolution{}, fmt.Errorf("resolve default staff: %w", err)
		}
		if st != nil && st.IsActive {
			busy, err := checker.Overlaps(ctx, business.ID, &st.ID, start, end)
			if err != nil {
				return StaffResolution{}, err
			}
			if !busy {
				return StaffResolution{Staff: st}, nil
			}
		}
	}

	// Политика (в): первый свободный. Порядок по id — детерминированный.
	all, err := s.staff.ListActive(ctx, business.ID)
	if err != nil {
		return StaffResolution{}, fmt.Errorf("list staff: %w", err)
	}

	for _, st := range all {
		busy, err := checker.Overlaps(ctx, business.ID, &st.ID, start, end)
		if err != nil {
			return StaffResolution{}, err
		}
		if !busy {
			return StaffResolution{Staff: st}, nil
		}
	}

	return StaffResolution{NoneFree: true}, nil
}
