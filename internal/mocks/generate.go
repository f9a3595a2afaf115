package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/team --output domain/team --outpkg teammock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/gameserver --output domain/gameserver --outpkg gameservermock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Registry --dir ../domain/challenge --output domain/challenge --outpkg challengemock --filename registry_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name ServerAllocator --dir ../usecase --output usecase --outpkg usecasemock --filename server_allocator_mock.go
