package main

import "github.com/familytales/memorybook-api/cmd"

// @title           FamilyTales Memory Book API
// @version         1.0.0
// @description     Assembles ordered family content into continuous narrated audio with a per-item segment map
// @contact.name    API Support
// @contact.url     https://github.com/familytales/memorybook-api
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:8080
// @BasePath        /
// @schemes         http https
func main() {
	cmd.Execute()
}
