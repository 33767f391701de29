package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/classhub-api/internal/dto"
	"github.com/noah-isme/classhub-api/internal/event"
	"github.com/noah-isme/classhub-api/internal/mailer"
	"github.com/noah-isme/classhub-api/internal/models"
	"github.com/noah-isme/classhub-api/internal/observability"
	"github.com/noah-isme/classhub-api/internal/repository"
)

const notificationBufferSize = 16

// ErrNotificationNotFound is returned when no notification matches the
// requested id for the acting user.
var ErrNotificationNotFound = errors.New("notification not found")

// Notification type labels.
const (
	NotificationTypeSubmission = "submission"
	NotificationTypeGrade      = "grade"
	NotificationTypeWelcome    = "welcome"
	NotificationTypeNewMember  = "new_member"
)

// NotificationService persists in-app notifications, streams them to
// connected users, and translates domain events into outbound email. Email
// and streaming failures are logged; they never surface to the operation
// that triggered them.
type NotificationService interface {
	List(ctx context.Context, userID uint, limit, offset int) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error)
	Subscribe(userID uint) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

type notificationService struct {
	notifications repository.NotificationRepository
	submissions   repository.SubmissionRepository
	memberships   repository.MembershipRepository
	mail          mailer.Mailer
	emailEnabled  bool
	siteURL       string
	redis         *redis.Client
	redisChannel  string
	nats          *nats.Conn
	natsSubject   string
	sanitizer     *bluemonday.Policy
	broker        *notificationBroker
	nodeID        string
	logger        zerolog.Logger
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.NotificationResponse]struct{}
}

// NotificationConfig carries the optional wiring for the notification service.
type NotificationConfig struct {
	EmailEnabled bool
	SiteURL      string
	Redis        *redis.Client
	NATS         *nats.Conn
	ChannelBase  string
}

// NewNotificationService constructs the notification service and subscribes
// its handlers to the dispatcher.
func NewNotificationService(notifications repository.NotificationRepository, submissions repository.SubmissionRepository, memberships repository.MembershipRepository, mail mailer.Mailer, dispatcher event.Dispatcher, cfg NotificationConfig, logger zerolog.Logger) NotificationService {
	channel := ""
	subject := ""
	if cfg.ChannelBase != "" {
		channel = cfg.ChannelBase + ":notifications"
		subject = strings.ReplaceAll(cfg.ChannelBase, ":", ".") + ".notifications"
	}

	s := &notificationService{
		notifications: notifications,
		submissions:   submissions,
		memberships:   memberships,
		mail:          mail,
		emailEnabled:  cfg.EmailEnabled,
		siteURL:       strings.TrimRight(cfg.SiteURL, "/"),
		redis:         cfg.Redis,
		redisChannel:  channel,
		nats:          cfg.NATS,
		natsSubject:   subject,
		sanitizer:     bluemonday.StrictPolicy(),
		broker: &notificationBroker{
			subscribers: make(map[uint]map[chan dto.NotificationResponse]struct{}),
		},
		nodeID: uuid.NewString(),
		logger: logger.With().Str("component", "notification_service").Logger(),
	}

	dispatcher.Subscribe(event.TypeSubmissionSubmitted, s.handleSubmissionSubmitted)
	dispatcher.Subscribe(event.TypeSubmissionGraded, s.handleSubmissionGraded)
	dispatcher.Subscribe(event.TypeMembershipCreated, s.handleMembershipCreated)

	return s
}

// Start begins consuming cross-node fanout channels, when configured.
func (s *notificationService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *notificationService) List(ctx context.Context, userID uint, limit, offset int) ([]dto.NotificationResponse, error) {
	if userID == 0 {
		return nil, errors.New("user id is required")
	}

	notifications, err := s.notifications.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error) {
	notification, err := s.notifications.MarkRead(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, ErrNotificationNotFound
		}
		return dto.NotificationResponse{}, err
	}

	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) Subscribe(userID uint) (<-chan dto.NotificationResponse, func()) {
	channel := make(chan dto.NotificationResponse, notificationBufferSize)
	s.broker.subscribe(userID, channel)

	cleanup := func() {
		s.broker.unsubscribe(userID, channel)
	}

	return channel, cleanup
}

// handleSubmissionSubmitted notifies the classroom teacher that a project
// has been handed in.
func (s *notificationService) handleSubmissionSubmitted(ctx context.Context, evt event.Event) error {
	submitted, ok := evt.(event.SubmissionSubmitted)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", evt.Name())
	}

	submission, err := s.submissions.GetByID(ctx, submitted.SubmissionID)
	if err != nil {
		return fmt.Errorf("loading submitted submission: %w", err)
	}

	teacher := submission.Classroom.Teacher
	student := submission.CreatedBy

	message := fmt.Sprintf("%s submitted %q in %s", student.Name, submission.Title, submission.Classroom.Title)
	s.record(ctx, teacher.ID, NotificationTypeSubmission, message)

	if !s.emailEnabled {
		return nil
	}

	text := fmt.Sprintf(
		"Hello %s,\n\n%s (%s) submitted the project %q in %s.\n\nRepository: %s\n",
		teacher.Name, student.Name, student.Email, submission.Title, submission.Classroom.Title, submission.RepositoryURL,
	)
	if submission.DeployedURL != "" {
		text += fmt.Sprintf("Deployed: %s\n", submission.DeployedURL)
	}
	if collaborators := submission.Collaborators; len(collaborators) > 0 {
		names := make([]string, 0, len(collaborators))
		for _, c := range collaborators {
			names = append(names, c.Name)
		}
		text += fmt.Sprintf("Collaborators: %s\n", strings.Join(names, ", "))
	}
	text += fmt.Sprintf("\nReview it here: %s/submissions/%d\n", s.siteURL, submission.ID)

	s.deliver(ctx, mailer.Message{
		To:       []mailer.Address{{Name: teacher.Name, Email: teacher.Email}},
		Subject:  fmt.Sprintf("[%s] New Project Submission: %s", submission.Classroom.Title, submission.Title),
		TextBody: text,
	})

	return nil
}

// handleSubmissionGraded notifies the creator and every collaborator,
// deduplicated, with the grade and feedback.
func (s *notificationService) handleSubmissionGraded(ctx context.Context, evt event.Event) error {
	graded, ok := evt.(event.SubmissionGraded)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", evt.Name())
	}

	submission, err := s.submissions.GetByID(ctx, graded.SubmissionID)
	if err != nil {
		return fmt.Errorf("loading graded submission: %w", err)
	}

	teacher := submission.Classroom.Teacher
	message := fmt.Sprintf("%q was graded %d/20 in %s", submission.Title, graded.Score, submission.Classroom.Title)

	for _, recipient := range submission.Participants() {
		s.record(ctx, recipient.ID, NotificationTypeGrade, message)

		if !s.emailEnabled {
			continue
		}

		text := fmt.Sprintf(
			"Hello %s,\n\n%s graded your project %q in %s.\n\nGrade: %d/20 (%s)\n",
			recipient.Name, teacher.Name, submission.Title, submission.Classroom.Title,
			graded.Score, GradeDescription(graded.Score),
		)
		if submission.TeacherNotes != "" {
			text += fmt.Sprintf("\nFeedback:\n%s\n", submission.TeacherNotes)
		}
		text += fmt.Sprintf("\nView it here: %s/submissions/%d\n", s.siteURL, submission.ID)

		s.deliver(ctx, mailer.Message{
			To:       []mailer.Address{{Name: recipient.Name, Email: recipient.Email}},
			Subject:  fmt.Sprintf("[%s] Your Project Has Been Graded: %d/20", submission.Classroom.Title, graded.Score),
			TextBody: text,
		})
	}

	return nil
}

// handleMembershipCreated welcomes the student and alerts the teacher.
func (s *notificationService) handleMembershipCreated(ctx context.Context, evt event.Event) error {
	created, ok := evt.(event.MembershipCreated)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", evt.Name())
	}

	membership, err := s.memberships.Get(ctx, created.ClassroomID, created.StudentID)
	if err != nil {
		return fmt.Errorf("loading membership: %w", err)
	}

	classroom := membership.Classroom
	student := membership.Student

	s.record(ctx, student.ID, NotificationTypeWelcome, fmt.Sprintf("Welcome to %s", classroom.Title))
	s.record(ctx, classroom.TeacherID, NotificationTypeNewMember, fmt.Sprintf("%s joined %s", student.Name, classroom.Title))

	if !s.emailEnabled {
		return nil
	}

	text := fmt.Sprintf(
		"Hello %s,\n\nYou have joined the classroom %s.\n\nProject: %s\n\nWhen your work is ready, submit it here: %s/classrooms/%d\n",
		student.Name, classroom.Title, classroom.Description, s.siteURL, classroom.ID,
	)

	s.deliver(ctx, mailer.Message{
		To:       []mailer.Address{{Name: student.Name, Email: student.Email}},
		Subject:  fmt.Sprintf("Welcome to %s", classroom.Title),
		TextBody: text,
	})

	return nil
}

// record persists an in-app notification and pushes it to live subscribers.
func (s *notificationService) record(ctx context.Context, userID uint, notificationType, message string) {
	clean := strings.TrimSpace(s.sanitizer.Sanitize(message))
	if clean == "" {
		return
	}

	model := models.Notification{
		UserID:  userID,
		Type:    notificationType,
		Message: clean,
	}
	if err := s.notifications.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to persist notification")
		return
	}
	observability.Notifications().WithLabelValues(notificationType).Inc()

	response := dto.NewNotificationResponse(model)
	s.broker.broadcast(userID, response)
	if err := s.publish(ctx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish notification to fanout channel")
	}
}

func (s *notificationService) deliver(ctx context.Context, message mailer.Message) {
	if err := s.mail.Send(ctx, message); err != nil {
		observability.EmailsSent().WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Str("subject", message.Subject).Msg("email delivery failed")
		return
	}
	observability.EmailsSent().WithLabelValues("ok").Inc()
}

func (s *notificationService) publish(ctx context.Context, notification dto.NotificationResponse) error {
	if (s.redis == nil || s.redisChannel == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(notificationEvent{
		Source:       s.nodeID,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleFanout([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "classhub-notifications", func(msg *nats.Msg) {
		s.handleFanout(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

func (s *notificationService) handleFanout(payload []byte) {
	var fanout notificationEvent
	if err := json.Unmarshal(payload, &fanout); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification fanout payload")
		return
	}

	if fanout.Source == s.nodeID {
		return
	}

	s.broker.broadcast(fanout.Notification.UserID, fanout.Notification)
}

// GradeDescription maps a 1..20 score to its French mention.
func GradeDescription(score int) string {
	switch {
	case score >= 16:
		return "Très Bien"
	case score >= 14:
		return "Bien"
	case score >= 12:
		return "Assez Bien"
	case score >= 10:
		return "Passable"
	default:
		return "Insuffisant"
	}
}

func (b *notificationBroker) subscribe(userID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userID]; !exists {
		b.subscribers[userID] = make(map[chan dto.NotificationResponse]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(userID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, userID)
		}
	}
}

func (b *notificationBroker) broadcast(userID uint, notification dto.NotificationResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[userID] {
		select {
		case ch <- notification:
		default:
		}
	}
}
