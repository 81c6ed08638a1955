package models

import "time"

type SubscribeRequest struct {
	Email      string   `json:"email" binding:"required,email"`
	Name       string   `json:"name"`
	Frequency  string   `json:"frequency" binding:"required,oneof=DAILY WEEKLY MONTHLY REALTIME"`
	Categories []string `json:"categories" binding:"required,min=1"`
}

type SubscribeResult struct {
	Message string `json:"message"`
	Email   string `json:"email"`
	Updated bool   `json:"isUpdate"`
	Warning string `json:"warning,omitempty"`
}

type ConfirmResult struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type ManageLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type UpdatePreferencesRequest struct {
	Email      string    `json:"email" binding:"required,email"`
	Token      string    `json:"token" binding:"required"`
	Frequency  *string   `json:"frequency" binding:"omitempty,oneof=DAILY WEEKLY MONTHLY REALTIME"`
	Categories *[]string `json:"categories"`
	NoEmails   *bool     `json:"noEmails"`
}

type PreferencesView struct {
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	Status     string   `json:"status"`
	Frequency  string   `json:"frequency"`
	Categories []string `json:"categories"`
	NoEmails   bool     `json:"noEmails"`
}

type UnsubscribeRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Token  string `json:"token" binding:"required"`
	Reason string `json:"reason"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SendNewsletterRequest struct {
	Subject      string     `json:"subject" binding:"required"`
	Content      string     `json:"content" binding:"required"`
	ContentType  string     `json:"contentType" binding:"omitempty,oneof=html markdown"`
	Audience     string     `json:"audience" binding:"required,oneof=all active new engaged"`
	ScheduledFor *time.Time `json:"scheduledFor"`
}

type CreateTemplateRequest struct {
	Name     string `json:"name" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
	Content  string `json:"content" binding:"required"`
	Preview  string `json:"preview"`
	Category string `json:"category"`
}

type UpdateTemplateRequest struct {
	Name     *string `json:"name"`
	Subject  *string `json:"subject"`
	Content  *string `json:"content"`
	Preview  *string `json:"preview"`
	Category *string `json:"category"`
}

type AddSubscriberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

type DeleteSubscribersRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

type SubscriberListItem struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	JoinedDate string `json:"joinedDate"`
	LastOpened string `json:"lastOpened,omitempty"`
}

type WeekStat struct {
	Name        string `json:"name"`
	Subscribers int    `json:"subscribers"`
	Opens       int    `json:"opens"`
	Clicks      int    `json:"clicks"`
}

type DashboardStats struct {
	SubscriberCount   int        `json:"subscriberCount"`
	ActiveSubscribers int        `json:"activeSubscribers"`
	OpenRate          int        `json:"openRate"`
	ClickRate         int        `json:"clickRate"`
	WeeklyStats       []WeekStat `json:"weeklyStats"`
}
