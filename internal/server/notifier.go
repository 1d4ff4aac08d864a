package server

import (
	"context"
	"fmt"
	"time"

	"safacycle/internal/client"
	"safacycle/internal/misc"
	"safacycle/internal/model"
)

// notifyLevelUp records a notification for the user and pushes it to their
// devices. Runs detached from the request that triggered it.
func (s Server) notifyLevelUp(u model.User) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	title := "Level up!"
	message := fmt.Sprintf("Congratulations %s, you reached the %s level with %d points.",
		misc.StringLimit(u.Username, 45), u.Level, u.TotalPoints)

	if _, err := s.DB.NotificationInsert(ctx, model.Notification{
		UserID:           u.ID,
		Title:            title,
		Message:          message,
		NotificationType: "success",
	}); err != nil {
		s.Logger.Errorf("notifyLevelUp: Error inserting Notification for UserID: %d, err: %v", u.ID, err)
	}

	tokens, err := s.DB.UserFCMTokens(ctx, u.ID)
	if err != nil {
		s.Logger.Errorf("notifyLevelUp: Error getting FCM tokens for UserID: %d, err: %v", u.ID, err)
		return
	}
	if len(tokens) == 0 {
		s.Logger.Debugf("notifyLevelUp: No devices to push to for UserID: %d", u.ID)
		return
	}

	s.Logger.Infof("notifyLevelUp: Sending notification to %d Device(s) for UserID: %d, new level: %s",
		len(tokens), u.ID, u.Level)
	fcmResp, err := s.Client.FCMSendNotification(client.FCMSendRequest{
		Notification: client.FCMNotification{
			Title: title,
			Body:  message,
			Sound: "default",
		},
		Data:            client.FCMData{Level: string(u.Level)},
		RegistrationIDs: tokens,
	})
	if err != nil {
		s.Logger.Errorf("notifyLevelUp: Error sending notification to FCM for UserID: %d, err: %v", u.ID, err)
		return
	}
	s.Logger.Infof("notifyLevelUp: Send notification results for UserID: %d, success: %d, failure: %d",
		u.ID, fcmResp.Success, fcmResp.Failure)
}
