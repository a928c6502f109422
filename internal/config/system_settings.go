package config

import (
	"os"
	"strconv"
)

const DATABASE_TYPE = "KPFLOW_DATABASE_TYPE"
const DATABASE_URL = "KPFLOW_DATABASE_URL"
const DATABASE_SQLLITE_FILE_NAME = "KPFLOW_DATABASE_SQLLITE_FILE_NAME"
const SERVER_WEB_PORT = "KPFLOW_SERVER_WEB_PORT"
const GATE_RULES_FILE = "KPFLOW_GATE_RULES_FILE" //optional yaml file with extra gate rules
const SEARCH_MAX_PAGE_SIZE = "KPFLOW_SEARCH_MAX_PAGE_SIZE"
const SEARCH_DEFAULT_PAGE_SIZE = "KPFLOW_SEARCH_DEFAULT_PAGE_SIZE"

const DATABASE_TYPE_POSTGRES = "POSTGRES"
const DATABASE_TYPE_MYSQL = "MYSQL"
const DATABASE_TYPE_SQLLITE = "SQLLITE"

func GetSystemSettingInteger(settingKey string) int {
	val := GetSystemSettingString(settingKey)
	if val != "" {
		intValue, _ := strconv.Atoi(val)
		return intValue
	}
	return 0
}

func GetSystemSettingString(settingKey string) string {
	val := os.Getenv(settingKey)
	if val != "" {
		return val
	}
	if settingKey == SERVER_WEB_PORT {
		return "8080"
	}
	if settingKey == SEARCH_MAX_PAGE_SIZE {
		return "1000"
	}
	if settingKey == SEARCH_DEFAULT_PAGE_SIZE {
		return "20"
	}
	if settingKey == DATABASE_SQLLITE_FILE_NAME {
		return "./kpflow.db"
	}
	return ""
}
