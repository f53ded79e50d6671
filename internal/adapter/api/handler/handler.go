package handler

import (
	"chatterbox/internal/usecase"
)

var (
	authHandler       *AuthHandler
	userHandler       *UserHandler
	chatHandler       *ChatHandler
	friendHandler     *FriendHandler
	assistHandler     *AssistHandler
	attachmentHandler *AttachmentHandler
)

func Setup(
	authUseCase *usecase.AuthUseCase,
	userUseCase *usecase.UserUseCase,
	chatUseCase *usecase.ChatUseCase,
	chatListUseCase *usecase.ChatListUseCase,
	messageUseCase *usecase.MessageUseCase,
	friendUseCase *usecase.FriendUseCase,
	assistUseCase *usecase.AssistUseCase,
	attachmentUseCase *usecase.AttachmentUseCase,
	cookieSecure bool,
) {
	authHandler = NewAuthHandler(authUseCase, cookieSecure)
	userHandler = NewUserHandler(userUseCase)
	chatHandler = NewChatHandler(chatUseCase, chatListUseCase, messageUseCase)
	friendHandler = NewFriendHandler(friendUseCase)
	assistHandler = NewAssistHandler(assistUseCase)
	attachmentHandler = NewAttachmentHandler(attachmentUseCase)
}

func GetAuthHandler() *AuthHandler {
	return authHandler
}

func GetUserHandler() *UserHandler {
	return userHandler
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetFriendHandler() *FriendHandler {
	return friendHandler
}

func GetAssistHandler() *AssistHandler {
	return assistHandler
}

func GetAttachmentHandler() *AttachmentHandler {
	return attachmentHandler
}
