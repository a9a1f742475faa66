package services

import "errors"

// Запрашивающий клан не найден ни в базе, ни через API Wargaming;
// в handlers маппится на 404.
var ErrClanNotFound = errors.New("clan not found")
