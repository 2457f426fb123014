package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/repository"
)

func disputeLink(id string) string {
	return "/disputes/" + id
}

// RaiseDispute opens the task's dispute. A task has at most one dispute record;
// when it already exists it is returned to the task's participants with created=false.
func (uc *UseCase) RaiseDispute(ctx context.Context, taskID, actorID, reason string) (*domain.Dispute, bool, error) {
	var (
		dispute *domain.Dispute
		created bool
	)
	err := uc.run(ctx, "raise_dispute", func(ctx context.Context, tx repository.Tx) ([]domain.Event, error) {
		created = false
		task, err := tx.Tasks().GetForUpdate(ctx, taskID)
		if err != nil {
			return nil, err
		}

		existing, err := tx.Disputes().GetByTask(ctx, task.ID)
		switch {
		case err == nil:
			if !task.IsParticipant(actorID) && existing.RaisedBy != actorID {
				return nil, domain.ErrNotParticipant
			}
			dispute = existing
			return nil, nil
		case !domain.IsDomainError(err, domain.ErrCodeNotFound):
			return nil, err
		}

		if !task.IsAssignee(actorID) {
			return nil, domain.ErrNotTaskAssignee
		}
		if task.Status != domain.TaskInProgress {
			return nil, domain.ErrInvalidTransition
		}
		trimmed := strings.TrimSpace(reason)
		if trimmed == "" {
			return nil, domain.ErrReasonRequired
		}
		assignee, err := tx.Accounts().GetByID(ctx, actorID)
		if err != nil {
			return nil, err
		}

		dispute = &domain.Dispute{
			TaskID:    task.ID,
			RaisedBy:  actorID,
			Reason:    trimmed,
			Status:    domain.DisputeOpen,
			CreatedAt: uc.now(),
		}
		if err := tx.Disputes().Create(ctx, dispute); err != nil {
			return nil, err
		}
		task.Status = domain.TaskDisputed
		if err := tx.Tasks().UpdateState(ctx, task, domain.TaskInProgress); err != nil {
			return nil, err
		}
		created = true

		return []domain.Event{
			domain.NewEvent(domain.EventDisputeRaised, dispute.ID, actorID).
				Notify(task.CreatorID, fmt.Sprintf("%s has raised a dispute for your task: '%s'.", assignee.Username, task.Title), disputeLink(dispute.ID)).
				WithDispute(dispute).
				WithTask(task),
		}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return dispute, created, nil
}

// WithdrawDispute closes an open dispute without any ledger movement and puts
// the task back in progress.
func (uc *UseCase) WithdrawDispute(ctx context.Context, disputeID, actorID string) (*domain.Dispute, error) {
	var dispute *domain.Dispute
	err := uc.run(ctx, "withdraw_dispute", func(ctx context.Context, tx repository.Tx) ([]domain.Event, error) {
		var err error
		if dispute, err = tx.Disputes().GetByID(ctx, disputeID); err != nil {
			return nil, err
		}
		if dispute.RaisedBy != actorID {
			return nil, domain.ErrNotDisputeRaiser
		}
		if !dispute.IsOpen() {
			return nil, domain.ErrInvalidTransition
		}
		task, err := tx.Tasks().GetForUpdate(ctx, dispute.TaskID)
		if err != nil {
			return nil, err
		}
		if task.Status != domain.TaskDisputed {
			return nil, domain.ErrInvalidTransition
		}
		raiser, err := tx.Accounts().GetByID(ctx, actorID)
		if err != nil {
			return nil, err
		}

		task.Status = domain.TaskInProgress
		if err := tx.Tasks().UpdateState(ctx, task, domain.TaskDisputed); err != nil {
			return nil, err
		}
		dispute.Resolve(uc.now())
		if err := tx.Disputes().Update(ctx, dispute); err != nil {
			return nil, err
		}

		return []domain.Event{
			domain.NewEvent(domain.EventDisputeWithdrawn, dispute.ID, actorID).
				Notify(task.CreatorID, fmt.Sprintf("%s has withdrawn the dispute for '%s'. The task is now in progress.", raiser.Username, task.Title), myTasksLink).
				WithDispute(dispute).
				WithTask(task),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

// GetDispute returns a dispute with its task. Only the task's creator and
// assignee, the raiser, and admins may see it.
func (uc *UseCase) GetDispute(ctx context.Context, disputeID, actorID string) (*domain.Dispute, *domain.Task, error) {
	var (
		dispute *domain.Dispute
		task    *domain.Task
	)
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if dispute, err = tx.Disputes().GetByID(ctx, disputeID); err != nil {
			return err
		}
		if task, err = tx.Tasks().GetByID(ctx, dispute.TaskID); err != nil {
			return err
		}
		if task.IsParticipant(actorID) || dispute.RaisedBy == actorID {
			return nil
		}
		actor, err := tx.Accounts().GetByID(ctx, actorID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() {
			return domain.ErrNotParticipant
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return dispute, task, nil
}
