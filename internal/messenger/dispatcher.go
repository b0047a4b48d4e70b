package messenger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mirae-imaging/backoffice/internal/logger"
	"github.com/mirae-imaging/backoffice/internal/reservation"
)

// Channel selects the delivery path for one outbound message.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Message is one queued outbound delivery.
type Message struct {
	Channel   Channel
	Recipient string
	Subject   string // email only
	Body      string
}

// Options carries the clinic identity and recipients the templates need.
type Options struct {
	ClinicName  string
	ClinicPhone string
	StaffEmails []string // staff copies of new booking requests go here
	WorkerPool  int
	BufferSize  int
	SendTimeout time.Duration
}

// Dispatcher queues patient SMS and staff email deliveries and works them
// off a fixed pool. Delivery is best-effort; a failed send is logged and
// dropped, never retried into the reservation path.
type Dispatcher struct {
	email       EmailSender
	sms         SMSSender
	opts        Options
	logger      *logger.Logger
	messageChan chan Message
	workerPool  sync.WaitGroup
	shutdown    chan struct{}
	closed      atomic.Bool
}

// NewDispatcher creates a dispatcher and starts its workers. email and sms
// may be nil when the corresponding provider is not configured; messages
// for a missing channel are dropped with a warning.
func NewDispatcher(email EmailSender, sms SMSSender, opts Options, logger *logger.Logger) *Dispatcher {
	if opts.WorkerPool <= 0 {
		opts.WorkerPool = 4
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 200
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 15 * time.Second
	}

	d := &Dispatcher{
		email:       email,
		sms:         sms,
		opts:        opts,
		logger:      logger,
		messageChan: make(chan Message, opts.BufferSize),
		shutdown:    make(chan struct{}),
	}

	for i := 0; i < opts.WorkerPool; i++ {
		d.workerPool.Add(1)
		go d.worker()
	}

	logger.Info("messenger dispatcher started",
		slog.Int("worker_pool_size", opts.WorkerPool),
		slog.Int("buffer_size", opts.BufferSize))

	return d
}

func (d *Dispatcher) worker() {
	defer d.workerPool.Done()

	for {
		select {
		case msg := <-d.messageChan:
			d.handleMessage(msg)
		case <-d.shutdown:
			// Drain remaining messages
			for {
				select {
				case msg := <-d.messageChan:
					d.handleMessage(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) handleMessage(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
	defer cancel()

	log := d.logger.WithComponent("messenger")

	var err error
	switch msg.Channel {
	case ChannelEmail:
		if d.email == nil {
			log.Warn("email provider not configured, dropping message",
				slog.String("recipient", msg.Recipient))
			return
		}
		err = d.email.SendEmail(ctx, msg.Recipient, msg.Subject, msg.Body)
	case ChannelSMS:
		if d.sms == nil {
			log.Warn("sms provider not configured, dropping message",
				slog.String("recipient", msg.Recipient))
			return
		}
		err = d.sms.SendSMS(ctx, msg.Recipient, msg.Body)
	default:
		log.Warn("unknown message channel", slog.String("channel", string(msg.Channel)))
		return
	}

	if err != nil {
		log.Error("failed to deliver message",
			slog.String("channel", string(msg.Channel)),
			slog.String("recipient", msg.Recipient),
			slog.String("error", err.Error()))
		return
	}

	log.Debug("message delivered",
		slog.String("channel", string(msg.Channel)),
		slog.String("recipient", msg.Recipient))
}

func (d *Dispatcher) enqueue(msg Message) {
	if d.closed.Load() {
		return
	}

	select {
	case d.messageChan <- msg:
	default:
		d.logger.Warn("message queue is full, dropping message",
			slog.String("channel", string(msg.Channel)),
			slog.String("recipient", msg.Recipient))
	}
}

// ReservationReceived queues the patient acknowledgement SMS and staff
// email copies for a new booking request.
func (d *Dispatcher) ReservationReceived(r reservation.Reservation) {
	d.enqueue(Message{
		Channel:   ChannelSMS,
		Recipient: r.PatientPhone,
		Body:      receivedSMS(d.opts.ClinicName, d.opts.ClinicPhone, r),
	})

	for _, email := range d.opts.StaffEmails {
		d.enqueue(Message{
			Channel:   ChannelEmail,
			Recipient: email,
			Subject:   receivedEmailSubject(r),
			Body:      receivedEmailBody(r),
		})
	}
}

// ReservationConfirmed queues the patient confirmation SMS.
func (d *Dispatcher) ReservationConfirmed(r reservation.Reservation) {
	d.enqueue(Message{
		Channel:   ChannelSMS,
		Recipient: r.PatientPhone,
		Body:      confirmedSMS(d.opts.ClinicName, d.opts.ClinicPhone, r),
	})
}

// Shutdown stops intake and drains queued messages.
func (d *Dispatcher) Shutdown() {
	d.logger.Info("shutting down messenger dispatcher")
	d.closed.Store(true)
	close(d.shutdown)
	d.workerPool.Wait()
	d.logger.Info("messenger dispatcher shutdown complete")
}
