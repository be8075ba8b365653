package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"time"
	"unigest_backend/internal/model"
	"unigest_backend/internal/repository"
	"unigest_backend/internal/util"
	"unigest_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SubmissionService 学生提交 TP/TD 作业并查询自己的成绩。
// 截止时间仅作提示，过期仍可提交；每人每份作业只收一次。
type SubmissionService struct {
	SubmissionRepo *repository.SubmissionRepository
	AssignmentRepo *repository.AssignmentRepository
	AttemptRepo    *repository.AttemptRepository
	Storage        *StorageService
}

func NewSubmissionService(
	submissionRepo *repository.SubmissionRepository,
	assignmentRepo *repository.AssignmentRepository,
	attemptRepo *repository.AttemptRepository,
	storage *StorageService,
) *SubmissionService {
	return &SubmissionService{
		SubmissionRepo: submissionRepo,
		AssignmentRepo: assignmentRepo,
		AttemptRepo:    attemptRepo,
		Storage:        storage,
	}
}

// SubmitAssignment 收一份作业。文本和附件至少有一样。
func (s *SubmissionService) SubmitAssignment(ctx context.Context, student *model.User, assignmentID, content string, file *multipart.FileHeader) (*model.Submission, error) {
	assignment, err := s.AssignmentRepo.FindByID(assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssignmentNotFound
		}
		return nil, err
	}
	if student.AuditoriumID == nil || assignment.AuditoriumID != *student.AuditoriumID {
		return nil, util.ErrPermissionDenied
	}
	if content == "" && file == nil {
		return nil, fmt.Errorf("%w: submission needs content or an attachment", util.ErrValidation)
	}

	if _, err := s.SubmissionRepo.FindByStudentAndAssignment(student.ID, assignmentID); err == nil {
		return nil, util.ErrAlreadySubmitted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	submission := &model.Submission{
		AssignmentID: assignmentID,
		StudentID:    student.ID,
		Content:      content,
		SubmittedAt:  time.Now(),
		Status:       model.SubmissionSubmitted,
	}

	if file != nil {
		if file.Size > util.MaxAttachmentMB<<20 {
			return nil, fmt.Errorf("%w: attachment exceeds %dMB", util.ErrValidation, util.MaxAttachmentMB)
		}
		src, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer src.Close()

		// 按内容嗅探类型，不信任客户端报的扩展名
		contentType, err := util.ValidateMimeType(src, util.AllowedAttachmentTypes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", util.ErrValidation, err)
		}
		if _, err := src.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		key := fmt.Sprintf("submissions/%s/%s%s", assignmentID, uuid.NewString(), filepath.Ext(file.Filename))
		if _, err := s.Storage.Provider.Upload(ctx, key, src, file.Size, contentType); err != nil {
			return nil, err
		}
		submission.AttachmentKey = key
	}

	if err := s.SubmissionRepo.Create(submission); err != nil {
		// 并发重复提交撞唯一索引
		if _, dup := s.SubmissionRepo.FindByStudentAndAssignment(student.ID, assignmentID); dup == nil {
			return nil, util.ErrAlreadySubmitted
		}
		return nil, err
	}

	late := time.Now().After(assignment.Deadline)
	logger.Log.Info("assignment submitted",
		zap.String("submissionId", submission.ID),
		zap.String("assignmentId", assignmentID),
		zap.Uint("studentId", student.ID),
		zap.Bool("late", late))
	return submission, nil
}

func (s *SubmissionService) ListMySubmissions(studentID uint) ([]repository.StudentSubmissionRow, error) {
	return s.SubmissionRepo.ListByStudent(studentID)
}

func (s *SubmissionService) GetMySubmission(studentID uint, submissionID string) (*model.Submission, error) {
	submission, err := s.SubmissionRepo.FindDetail(submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubmissionNotFound
		}
		return nil, err
	}
	if submission.StudentID != studentID {
		return nil, util.ErrPermissionDenied
	}
	return submission, nil
}

func (s *SubmissionService) ListMyAttempts(studentID uint) ([]repository.StudentAttemptRow, error) {
	return s.AttemptRepo.ListByStudent(studentID)
}

// GetMyAttempt 学生查看自己已提交的作答，提交后才能看到判分明细
func (s *SubmissionService) GetMyAttempt(studentID uint, attemptID string) (*model.Attempt, error) {
	attempt, err := s.AttemptRepo.FindDetail(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.StudentID != studentID {
		return nil, util.ErrPermissionDenied
	}
	if attempt.SubmittedAt == nil {
		return nil, util.ErrAttemptInProgress
	}
	return attempt, nil
}
