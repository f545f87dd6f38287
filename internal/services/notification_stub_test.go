package services

import (
	"context"

	"github.com/google/uuid"
)

type notifyCall struct {
	targetID  uuid.UUID
	relatedID uuid.UUID
	name      string
}

type stubNotificationService struct {
	friendRequests []notifyCall
	accepted       []notifyCall
	comments       []notifyCall
	guestbook      []notifyCall
	err            error
}

func (s *stubNotificationService) NotifyFriendRequest(ctx context.Context, recipientID, requesterID uuid.UUID, requesterName string) error {
	s.friendRequests = append(s.friendRequests, notifyCall{targetID: recipientID, relatedID: requesterID, name: requesterName})
	return s.err
}

func (s *stubNotificationService) NotifyFriendAccepted(ctx context.Context, requesterID, acceptorID uuid.UUID, acceptorName string) error {
	s.accepted = append(s.accepted, notifyCall{targetID: requesterID, relatedID: acceptorID, name: acceptorName})
	return s.err
}

func (s *stubNotificationService) NotifyNewComment(ctx context.Context, postOwnerID, commenterID, postID uuid.UUID, commenterName string) error {
	s.comments = append(s.comments, notifyCall{targetID: postOwnerID, relatedID: commenterID, name: commenterName})
	return s.err
}

func (s *stubNotificationService) NotifyGuestbookEntry(ctx context.Context, profileOwnerID, authorID uuid.UUID, authorName string) error {
	s.guestbook = append(s.guestbook, notifyCall{targetID: profileOwnerID, relatedID: authorID, name: authorName})
	return s.err
}
