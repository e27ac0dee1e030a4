package sse

import (
	"context"
	"sync"

	"ms-booking/internal/models"
)

// Message is one server-sent event: Name becomes the "event:" line and
// Data is JSON encoded into the "data:" line.
type Message struct {
	Name string
	Data interface{}
}

// BookingEventEmitter fans committed booking activity out to connected
// stream clients. Seat status changes go to the public seat stream of the
// event, full booking events only to the admin stream.
type BookingEventEmitter struct {
	// key: event id, value: client channels
	seatClients     map[int64][]chan Message
	seatClientMutex sync.RWMutex

	bookingClients     map[int64][]chan Message
	bookingClientMutex sync.RWMutex
}

func NewBookingEventEmitter() *BookingEventEmitter {
	return &BookingEventEmitter{
		seatClients:    make(map[int64][]chan Message),
		bookingClients: make(map[int64][]chan Message),
	}
}

// SubscribeToSeats adds a client to the seat status stream of an event.
// The channel is closed once ctx is done.
func (e *BookingEventEmitter) SubscribeToSeats(ctx context.Context, eventID int64) chan Message {
	return subscribe(ctx, &e.seatClientMutex, e.seatClients, eventID)
}

// SubscribeToBookings adds a client to the booking event stream of an event.
func (e *BookingEventEmitter) SubscribeToBookings(ctx context.Context, eventID int64) chan Message {
	return subscribe(ctx, &e.bookingClientMutex, e.bookingClients, eventID)
}

// PublishBookingEvent lets the emitter sit next to the Kafka producer as a
// booking publisher. It never fails.
func (e *BookingEventEmitter) PublishBookingEvent(_ context.Context, event models.BookingEvent) error {
	broadcast(&e.bookingClientMutex, e.bookingClients, event.EventID, Message{Name: "booking", Data: event})
	return nil
}

func (e *BookingEventEmitter) PublishSeatStatus(_ context.Context, event models.SeatStatusEvent) error {
	broadcast(&e.seatClientMutex, e.seatClients, event.EventID, Message{Name: "seats", Data: event})
	return nil
}

func (e *BookingEventEmitter) SeatClientCount(eventID int64) int {
	e.seatClientMutex.RLock()
	defer e.seatClientMutex.RUnlock()
	return len(e.seatClients[eventID])
}

func (e *BookingEventEmitter) BookingClientCount(eventID int64) int {
	e.bookingClientMutex.RLock()
	defer e.bookingClientMutex.RUnlock()
	return len(e.bookingClients[eventID])
}

func subscribe(ctx context.Context, mu *sync.RWMutex, clients map[int64][]chan Message, eventID int64) chan Message {
	clientChan := make(chan Message, 10)

	mu.Lock()
	clients[eventID] = append(clients[eventID], clientChan)
	mu.Unlock()

	go func() {
		<-ctx.Done()
		remove(mu, clients, eventID, clientChan)
	}()

	return clientChan
}

// broadcast sends without blocking; a client with a full buffer misses
// the message.
func broadcast(mu *sync.RWMutex, clients map[int64][]chan Message, eventID int64, msg Message) {
	mu.RLock()
	defer mu.RUnlock()
	for _, clientChan := range clients[eventID] {
		select {
		case clientChan <- msg:
		default:
		}
	}
}

func remove(mu *sync.RWMutex, clients map[int64][]chan Message, eventID int64, clientChan chan Message) {
	mu.Lock()
	defer mu.Unlock()

	list := clients[eventID]
	for i, ch := range list {
		if ch == clientChan {
			clients[eventID] = append(list[:i], list[i+1:]...)
			close(clientChan)
			break
		}
	}
	if len(clients[eventID]) == 0 {
		delete(clients, eventID)
	}
}
